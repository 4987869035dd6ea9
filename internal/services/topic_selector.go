package services

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"histreader/internal/config"
	"histreader/internal/models"
	"histreader/internal/wiki"
)

// SelectorConfig is the immutable configuration of a TopicSelector.
type SelectorConfig struct {
	SeedCategories    []string
	DescentDepth      int
	SubcategoryLimit  int
	PageLimit         int
	Blocklist         []string
	SortKeyAlphabet   string
	EmptyFilterPolicy string // config.PolicyKeep or config.PolicyUnfiltered
}

// SelectorConfigFrom derives a SelectorConfig from the application config.
func SelectorConfigFrom(cfg *config.Config) SelectorConfig {
	s := cfg.Selector
	return SelectorConfig{
		SeedCategories:    append([]string(nil), s.SeedCategories...),
		DescentDepth:      s.DescentDepth,
		SubcategoryLimit:  s.SubcategoryLimit,
		PageLimit:         s.PageLimit,
		Blocklist:         append([]string(nil), s.Blocklist...),
		SortKeyAlphabet:   s.SortKeyAlphabet,
		EmptyFilterPolicy: s.EmptyFilterPolicy,
	}
}

// TopicSelector picks a random article by walking the category tree from a
// random seed category.
type TopicSelector struct {
	lister   CategoryLister
	rnd      RandomSource
	cfg      SelectorConfig
	alphabet []rune
}

// NewTopicSelector creates a selector. rnd must not be shared with concurrent users.
func NewTopicSelector(lister CategoryLister, rnd RandomSource, cfg SelectorConfig) *TopicSelector {
	return &TopicSelector{
		lister:   lister,
		rnd:      rnd,
		cfg:      cfg,
		alphabet: []rune(cfg.SortKeyAlphabet),
	}
}

// SelectTopic resolves one random article. Every failure is returned as a
// *models.SelectionError; no fallback topic is substituted here.
func (s *TopicSelector) SelectTopic(ctx context.Context) (models.TopicResult, error) {
	if len(s.cfg.SeedCategories) == 0 {
		return models.TopicResult{}, &models.SelectionError{Err: fmt.Errorf("%w: no seed categories configured", models.ErrNotFound)}
	}

	category := wiki.TrimCategoryPrefix(s.cfg.SeedCategories[s.rnd.Intn(len(s.cfg.SeedCategories))])
	category = s.descend(ctx, category)

	pages, err := s.listArticles(ctx, category)
	if err != nil {
		return models.TopicResult{}, &models.SelectionError{Category: category, Err: err}
	}

	pick := pages[s.rnd.Intn(len(pages))]
	return models.TopicResult{Title: pick.Title, Category: category}, nil
}

// descend walks up to DescentDepth levels of subcategories. Any listing
// failure or empty level ends the walk at the current category.
func (s *TopicSelector) descend(ctx context.Context, category string) string {
	for depth := 0; depth < s.cfg.DescentDepth; depth++ {
		members, err := s.lister.CategoryMembers(ctx, wiki.CategoryMembersQuery{
			Category: category,
			Type:     wiki.MemberSubcategory,
			Limit:    s.cfg.SubcategoryLimit,
		})
		if err != nil {
			log.WithFields(log.Fields{"category": category, "depth": depth}).Debugf("subcategory listing failed, stopping descent: %v", err)
			return category
		}
		if len(members) == 0 {
			return category
		}

		pool := s.filterBlocked(members)
		if len(pool) == 0 {
			if s.cfg.EmptyFilterPolicy != config.PolicyUnfiltered {
				log.WithField("category", category).Debug("all subcategories blocklisted, stopping descent")
				return category
			}
			pool = members
		}

		category = wiki.TrimCategoryPrefix(pool[s.rnd.Intn(len(pool))].Title)
	}
	return category
}

// listArticles lists main-namespace pages of category starting at a random
// sort-key prefix, falling back to the unprefixed listing when that is empty.
func (s *TopicSelector) listArticles(ctx context.Context, category string) ([]wiki.CategoryMember, error) {
	prefix := ""
	if len(s.alphabet) > 0 {
		prefix = string(s.alphabet[s.rnd.Intn(len(s.alphabet))])
	}

	query := wiki.CategoryMembersQuery{
		Category:           category,
		Type:               wiki.MemberPage,
		Limit:              s.cfg.PageLimit,
		StartSortKeyPrefix: prefix,
	}
	pages, err := s.listPages(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 && prefix != "" {
		query.StartSortKeyPrefix = ""
		if pages, err = s.listPages(ctx, query); err != nil {
			return nil, err
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: category has no articles", models.ErrNotFound)
	}
	return pages, nil
}

func (s *TopicSelector) listPages(ctx context.Context, q wiki.CategoryMembersQuery) ([]wiki.CategoryMember, error) {
	members, err := s.lister.CategoryMembers(ctx, q)
	if err != nil {
		return nil, err
	}
	return articlesOnly(members), nil
}

func (s *TopicSelector) filterBlocked(members []wiki.CategoryMember) []wiki.CategoryMember {
	var kept []wiki.CategoryMember
	for _, m := range members {
		if !containsAny(m.Title, s.cfg.Blocklist) {
			kept = append(kept, m)
		}
	}
	return kept
}

func articlesOnly(members []wiki.CategoryMember) []wiki.CategoryMember {
	var pages []wiki.CategoryMember
	for _, m := range members {
		if m.NS == wiki.NamespaceArticle && m.Title != "" {
			pages = append(pages, m)
		}
	}
	return pages
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
