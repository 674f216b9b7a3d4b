package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/services"
)

func TestListContents_WeakETag(t *testing.T) {
	ts := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	count := int64(2)
	listed := 0
	s := testServices()
	s.Contents = stubContents{
		stats: func(f filters.ContentFilters) (int64, *time.Time, error) {
			if f.Status != "ready" {
				t.Fatalf("stats filters = %+v", f)
			}
			return count, &ts, nil
		},
		listPage: func(filters.ContentFilters, int, int) ([]domain.Content, int64, error) {
			listed++
			return []domain.Content{{ID: "k1"}, {ID: "k2"}}, count, nil
		},
	}
	r := newTestRouter(t, s)

	w := do(r, http.MethodGet, "/contents?status=ready", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || !strings.HasPrefix(etag, `W/"contents:`) {
		t.Fatalf("first: %d etag=%q", w.Code, etag)
	}

	w = do(r, http.MethodGet, "/contents?status=ready", nil, "If-None-Match", etag)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("conditional: %d %q", w.Code, w.Body.String())
	}
	if listed != 1 {
		t.Fatalf("304 must skip the list query; listed=%d", listed)
	}

	// A different page is a different representation.
	w = do(r, http.MethodGet, "/contents?status=ready&page=2", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK || w.Header().Get("ETag") == etag {
		t.Fatalf("page 2 reused etag: %d", w.Code)
	}

	// New row changes the tag.
	count = 3
	w = do(r, http.MethodGet, "/contents?status=ready", nil, "If-None-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("after change: %d", w.Code)
	}
}

func TestCreateContent(t *testing.T) {
	var got services.ContentInput
	s := testServices()
	s.Contents = stubContents{
		create: func(in services.ContentInput) (*domain.Content, error) {
			got = in
			if in.RawText == "" {
				return nil, services.ErrInvalidInput
			}
			return &domain.Content{ID: "k9", Title: in.Title}, nil
		},
	}
	r := newTestRouter(t, s)

	w := do(r, http.MethodPost, "/contents", map[string]any{
		"title": "Q2 letter", "raw_text": "body", "source_type": "manual", "status": "ready", "score": 88.5,
	})
	if w.Code != http.StatusCreated || decode[domain.Content](t, w).ID != "k9" {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	if got.Score == nil || *got.Score != 88.5 || got.SourceType != "manual" {
		t.Fatalf("input = %+v", got)
	}

	cases := []struct {
		name string
		body any
		msg  string
	}{
		{"malformed json", `{"title":`, "invalid request body"},
		{"score out of range", map[string]any{"raw_text": "b", "score": 101}, "score must be <= 100"},
		{"bad url", map[string]any{"raw_text": "b", "source_url": "not a url"}, "source_url must be a valid URL"},
		{"service validation", map[string]any{"title": "x"}, "invalid input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/contents", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if er := decode[ErrorResponse](t, w); er.Code != ErrCodeBadRequest || er.Message != tc.msg {
				t.Fatalf("envelope = %+v", er)
			}
		})
	}
}

func TestUpdateAndArchiveContent(t *testing.T) {
	var gotID string
	var gotIn services.ContentUpdate
	s := testServices()
	s.Contents = stubContents{
		update: func(id string, in services.ContentUpdate) (*domain.Content, error) {
			gotID, gotIn = id, in
			return &domain.Content{ID: id}, nil
		},
		archive: func(id string) error {
			if id != "k1" {
				return services.ErrContentNotFound
			}
			return nil
		},
	}
	r := newTestRouter(t, s)

	w := do(r, http.MethodPatch, "/contents/k1", map[string]any{"priority": "high", "is_featured": false})
	if w.Code != http.StatusOK || gotID != "k1" {
		t.Fatalf("update: %d", w.Code)
	}
	if gotIn.Priority == nil || *gotIn.Priority != "high" || gotIn.IsFeatured == nil || *gotIn.IsFeatured || gotIn.Title != nil {
		t.Fatalf("partial update = %+v", gotIn)
	}

	gotID = ""
	w = do(r, http.MethodPatch, "/contents/k1", map[string]any{"source_url": "not a url"})
	if w.Code != http.StatusBadRequest || gotID != "" {
		t.Fatalf("bad url update: %d, service called=%v", w.Code, gotID != "")
	}
	if er := decode[ErrorResponse](t, w); er.Message != "source_url must be a valid URL" {
		t.Fatalf("envelope = %+v", er)
	}
	w = do(r, http.MethodPatch, "/contents/k1", map[string]any{"source_url": ""})
	if w.Code != http.StatusOK || gotIn.SourceURL == nil || *gotIn.SourceURL != "" {
		t.Fatalf("clearing source_url: %d %+v", w.Code, gotIn.SourceURL)
	}

	if w := do(r, http.MethodPost, "/contents/k1/archive", nil); w.Code != http.StatusNoContent {
		t.Fatalf("archive: %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/contents/zz/archive", nil); w.Code != http.StatusNotFound {
		t.Fatalf("archive missing: %d", w.Code)
	}
}

func TestContentSubresources(t *testing.T) {
	r := newTestRouter(t, testServices())

	w := do(r, http.MethodGet, "/contents/k1/hooks", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"data":[]}` {
		t.Fatalf("hooks: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/contents/k1/distributions", nil); w.Code != http.StatusNotFound {
		t.Fatalf("distributions of missing content: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/contents/k1", nil); w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
}
