package apihandlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histreader/internal/app"
	"histreader/internal/models"
	"histreader/internal/services"
	"histreader/internal/store/local"
)

type sourceFunc func(ctx context.Context, obs services.StatusObserver) (*models.Article, error)

func (f sourceFunc) Fetch(ctx context.Context, obs services.StatusObserver) (*models.Article, error) {
	return f(ctx, obs)
}

func newTestRouter(t *testing.T, source services.ArticleSource) (*gin.Engine, *local.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := local.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := &app.App{
		Store:             db,
		ReaderService:     services.NewReaderService(services.ReaderServiceDeps{Source: source, History: db}),
		PreferenceService: services.NewPreferenceService(db),
		HistoryService:    services.NewHistoryService(db),
	}
	router := gin.New()
	RegisterRoutes(router, NewAPIHandler(a))
	return router, db
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func okSource(a *models.Article) sourceFunc {
	return func(context.Context, services.StatusObserver) (*models.Article, error) { return a, nil }
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, okSource(nil))
	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFetchRandomArticleHandler(t *testing.T) {
	article := &models.Article{
		HeaderTopic:    "元寇",
		HeaderCategory: "鎌倉時代",
		BodyText:       "本文",
		Content:        "【主題: 元寇】\n(カテゴリ: 鎌倉時代)\n\n本文",
		CharCount:      25,
		Attempts:       1,
	}
	router, db := newTestRouter(t, okSource(article))

	w := doRequest(router, http.MethodPost, "/api/v1/articles/random", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data models.Article `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, *article, resp.Data)

	records, err := db.ListFetches(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "元寇", records[0].Title)
}

func TestFetchRandomArticleHandler_Exhausted(t *testing.T) {
	router, _ := newTestRouter(t, sourceFunc(func(context.Context, services.StatusObserver) (*models.Article, error) {
		return nil, &models.ExhaustedRetriesError{Attempts: 4, Err: models.ErrTransport}
	}))

	w := doRequest(router, http.MethodPost, "/api/v1/articles/random", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "upstream_error", apiErr.Code)
	assert.Equal(t, models.UserMessage(models.ErrTransport), apiErr.Message)
}

func TestFetchRandomArticleHandler_Conflict(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	router, _ := newTestRouter(t, sourceFunc(func(context.Context, services.StatusObserver) (*models.Article, error) {
		close(started)
		<-release
		return &models.Article{HeaderTopic: "x"}, nil
	}))

	first := make(chan int, 1)
	go func() {
		first <- doRequest(router, http.MethodPost, "/api/v1/articles/random", "").Code
	}()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch did not start")
	}

	w := doRequest(router, http.MethodPost, "/api/v1/articles/random", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeError(t, w).Code)

	status := doRequest(router, http.MethodGet, "/api/v1/status", "")
	assert.Contains(t, status.Body.String(), `"busy":true`)

	close(release)
	assert.Equal(t, http.StatusOK, <-first)
}

func TestStatusHandler_Idle(t *testing.T) {
	router, _ := newTestRouter(t, okSource(nil))

	w := doRequest(router, http.MethodGet, "/api/v1/status", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Status models.StatusEvent `json:"status"`
			Busy   bool               `json:"busy"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusIdle, resp.Data.Status.Status)
	assert.False(t, resp.Data.Busy)
}

func TestHistoryHandler(t *testing.T) {
	router, db := newTestRouter(t, okSource(nil))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"大化の改新", "壬申の乱", "平城京"} {
		require.NoError(t, db.RecordFetch(context.Background(), &models.FetchRecord{
			ID:          uuid.New(),
			Title:       title,
			Status:      models.StatusComplete,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
			CompletedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}

	w := doRequest(router, http.MethodGet, "/api/v1/history?limit=2", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.FetchRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "平城京", resp.Data[0].Title)
	assert.Equal(t, "壬申の乱", resp.Data[1].Title)

	bad := doRequest(router, http.MethodGet, "/api/v1/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestPreferencesHandlers(t *testing.T) {
	router, db := newTestRouter(t, okSource(nil))

	w := doRequest(router, http.MethodGet, "/api/v1/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"font_size":14,"font_family":"sans-serif"}}`, w.Body.String())

	w = doRequest(router, http.MethodPut, "/api/v1/preferences", `{"font_size":18,"font_family":"serif"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"font_size":18,"font_family":"serif"}}`, w.Body.String())

	v, err := db.GetPreference(context.Background(), services.KeyFontSize)
	require.NoError(t, err)
	assert.Equal(t, "18", v)

	w = doRequest(router, http.MethodPut, "/api/v1/preferences", `{"font_size":200,"font_family":" "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"font_size":14,"font_family":"sans-serif"}}`, w.Body.String())

	w = doRequest(router, http.MethodPut, "/api/v1/preferences", `{"font_size":"big"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Code)
}
