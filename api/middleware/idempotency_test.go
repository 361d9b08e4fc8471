package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
)

type fakeStore struct {
	data  map[string]string
	locks map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), locks: make(map[string]bool)}
}

func (f *fakeStore) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.locks[key] {
		return false, nil
	}
	f.locks[key] = true
	return true, nil
}

func (f *fakeStore) ReleaseLock(_ context.Context, key string) error {
	delete(f.locks, key)
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		pattern  string
		want     time.Duration
		required bool
		ok       bool
	}{
		{"approve", http.MethodPost, "/api/v1/admin/price-items/approve", reviewIdempotencyTTL, true, true},
		{"reject", http.MethodPost, "/api/v1/admin/price-items/reject", reviewIdempotencyTTL, true, true},
		{"unapprove", http.MethodPost, "/api/v1/admin/price-items/unapprove", reviewIdempotencyTTL, true, true},
		{"create item", http.MethodPost, "/api/v1/admin/price-items", createIdempotencyTTL, false, true},
		{"create supplier", http.MethodPost, "/api/v1/admin/suppliers", createIdempotencyTTL, false, true},
		{"create ingredient subroute", http.MethodPost, "/api/v1/admin/ingredients/", createIdempotencyTTL, false, true},
		{"list items", http.MethodGet, "/api/v1/admin/price-items", 0, false, false},
		{"patch item", http.MethodPatch, "/api/v1/admin/price-items/{id}", 0, false, false},
	}

	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if !ok {
			continue
		}
		if rule.ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, rule.ttl)
		}
		if rule.required != tt.required {
			t.Fatalf("%s: expected required=%v got %v", tt.name, tt.required, rule.required)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/approve", "/api/v1/admin/price-items/approve", strings.NewReader(`{"ids":["a"]}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/approve", "/api/v1/admin/price-items/approve", strings.NewReader(`{"ids":["a"]}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/approve", "/api/v1/admin/price-items/approve", strings.NewReader(`{"ids":["a"]}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if rec.Header().Get(replayedHeader) != "true" {
		t.Fatalf("expected replay marker header")
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareOptionalKeyPassesThrough(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/admin/suppliers", "/api/v1/admin/suppliers", strings.NewReader(`{"name":"Acme"}`))
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice without a key, ran %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(store.data))
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/reject", "/api/v1/admin/price-items/reject", strings.NewReader(`{"ids":["a"]}`))
		req.Header.Set("Idempotency-Key", "retry-me")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected retry after server error, handler ran %d times", calls)
	}
}

func TestIdempotencyScopeIncludesActor(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for _, user := range []string{"user-a", "user-b"} {
		req := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/approve", "/api/v1/admin/price-items/approve", strings.NewReader(`{"ids":["a"]}`))
		req = req.WithContext(WithActor(req.Context(), user, user))
		req.Header.Set("Idempotency-Key", "shared")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected separate scopes per reviewer, handler ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/approve", "/api/v1/admin/price-items/approve", strings.NewReader(`{"ids":["a"]}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := requestWithPattern(http.MethodPost, "/api/v1/admin/price-items/approve", "/api/v1/admin/price-items/approve", strings.NewReader(`{"ids":["b"]}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyMiddlewareRefusesConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	path := "/api/v1/admin/price-items/approve"
	key := store.IdempotencyKey("|"+http.MethodPost+"|"+path, "in-flight")
	if ok, _ := store.AcquireLock(context.Background(), key, time.Minute); !ok {
		t.Fatal("expected to take the lock")
	}

	req := requestWithPattern(http.MethodPost, path, path, strings.NewReader(`{"ids":["a"]}`))
	req.Header.Set("Idempotency-Key", "in-flight")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run while the key is locked, ran %d", calls)
	}

	_ = store.ReleaseLock(context.Background(), key)
	retry := requestWithPattern(http.MethodPost, path, path, strings.NewReader(`{"ids":["a"]}`))
	retry.Header.Set("Idempotency-Key", "in-flight")
	mw(handler).ServeHTTP(httptest.NewRecorder(), retry)
	if calls != 1 {
		t.Fatalf("expected handler to run after release, ran %d", calls)
	}
	if len(store.locks) != 0 {
		t.Fatalf("expected lock released after request, got %v", store.locks)
	}
}
