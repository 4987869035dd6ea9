package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"histreader/internal/models"
	"histreader/internal/wiki"
)

// seqRand returns scripted draws in order and records each bound.
type seqRand struct {
	t      *testing.T
	draws  []int
	bounds []int
}

func (r *seqRand) Intn(n int) int {
	r.bounds = append(r.bounds, n)
	if len(r.draws) == 0 {
		r.t.Fatalf("unexpected random draw #%d (n=%d)", len(r.bounds), n)
		return 0
	}
	v := r.draws[0]
	r.draws = r.draws[1:]
	if v >= n {
		r.t.Fatalf("scripted draw %d out of range for n=%d", v, n)
	}
	return v
}

type listing struct {
	members []wiki.CategoryMember
	err     error
}

// fakeLister answers category listings keyed by category, member type and
// sort-key prefix. Unknown keys return an empty listing.
type fakeLister struct {
	responses map[string]listing
	queries   []wiki.CategoryMembersQuery
}

func listingKey(category string, typ wiki.MemberType, prefix string) string {
	return fmt.Sprintf("%s|%s|%s", category, typ, prefix)
}

func newFakeLister() *fakeLister {
	return &fakeLister{responses: map[string]listing{}}
}

func (f *fakeLister) subcats(category string, titles ...string) *fakeLister {
	var members []wiki.CategoryMember
	for _, t := range titles {
		members = append(members, wiki.CategoryMember{NS: 14, Title: wiki.CategoryPrefix + t})
	}
	f.responses[listingKey(category, wiki.MemberSubcategory, "")] = listing{members: members}
	return f
}

func (f *fakeLister) pages(category, prefix string, members ...wiki.CategoryMember) *fakeLister {
	f.responses[listingKey(category, wiki.MemberPage, prefix)] = listing{members: members}
	return f
}

func (f *fakeLister) fail(category string, typ wiki.MemberType, prefix string, err error) *fakeLister {
	f.responses[listingKey(category, typ, prefix)] = listing{err: err}
	return f
}

func (f *fakeLister) CategoryMembers(_ context.Context, q wiki.CategoryMembersQuery) ([]wiki.CategoryMember, error) {
	f.queries = append(f.queries, q)
	l := f.responses[listingKey(q.Category, q.Type, q.StartSortKeyPrefix)]
	return l.members, l.err
}

func (f *fakeLister) countType(typ wiki.MemberType) int {
	n := 0
	for _, q := range f.queries {
		if q.Type == typ {
			n++
		}
	}
	return n
}

func article(title string) wiki.CategoryMember {
	return wiki.CategoryMember{NS: wiki.NamespaceArticle, Title: title}
}

type mockPicker struct {
	mock.Mock
}

func (m *mockPicker) SelectTopic(ctx context.Context) (models.TopicResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.TopicResult), args.Error(1)
}

type mockExtracts struct {
	mock.Mock
}

func (m *mockExtracts) Extract(ctx context.Context, title string) (string, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.Error(1)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) RecordFetch(ctx context.Context, rec *models.FetchRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockHistory) ListFetches(ctx context.Context, limit int) ([]*models.FetchRecord, error) {
	args := m.Called(ctx, limit)
	recs, _ := args.Get(0).([]*models.FetchRecord)
	return recs, args.Error(1)
}

// eventLog collects status events from any goroutine.
type eventLog struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (l *eventLog) OnStatus(evt models.StatusEvent) {
	l.mu.Lock()
	l.events = append(l.events, evt)
	l.mu.Unlock()
}

func (l *eventLog) all() []models.StatusEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.StatusEvent(nil), l.events...)
}

func (l *eventLog) last() models.StatusEvent {
	all := l.all()
	if len(all) == 0 {
		return models.StatusEvent{}
	}
	return all[len(all)-1]
}
