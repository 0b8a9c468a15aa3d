package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"appraisal/internal/platform/idempotency"
)

type mapIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotency.Record
}

func (s *mapIdempotencyStore) LookupIdempotency(_ context.Context, scope, key string) (idempotency.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[scope+"|"+key]
	return rec, ok, nil
}

func (s *mapIdempotencyStore) SaveIdempotency(_ context.Context, scope, key string, rec idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[scope+"|"+key]; ok && existing.RequestHash != rec.RequestHash {
		return idempotency.ErrConflict
	}
	s.records[scope+"|"+key] = rec
	return nil
}

func TestIdempotentReplaysStoredReply(t *testing.T) {
	store := &mapIdempotencyStore{records: map[string]idempotency.Record{}}
	calls := 0
	handler := Idempotent(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/surveys/s1/distributions", bytes.NewBufferString(body))
		req.Header.Set("Idempotency-Key", "k1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"role":"DEVELOPER"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	second := send(`{"role":"DEVELOPER"}`)
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != `{"success":true}` {
		t.Fatalf("unexpected replay body %q", second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}

	conflict := send(`{"role":"MANAGER"}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", conflict.Code)
	}
}

func TestIdempotentSkipsServerErrors(t *testing.T) {
	store := &mapIdempotencyStore{records: map[string]idempotency.Record{}}
	calls := 0
	handler := Idempotent(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/surveys/s1/distributions", bytes.NewBufferString(`{}`))
		req.Header.Set("Idempotency-Key", "k2")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected failed request to be retried, ran %d times", calls)
	}
}

func TestIdempotentWithoutKeyPassesThrough(t *testing.T) {
	store := &mapIdempotencyStore{records: map[string]idempotency.Record{}}
	handler := Idempotent(store)(noContent())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/surveys/s1/distributions", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass through, got %d", rec.Code)
	}
	if len(store.records) != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestIdempotentConcurrentDuplicatesRunOnce(t *testing.T) {
	store := &mapIdempotencyStore{records: map[string]idempotency.Record{}}
	var mu sync.Mutex
	calls := 0
	handler := Idempotent(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/surveys/s1/distributions", bytes.NewBufferString(`{"role":"AUTO"}`))
			req.Header.Set("Idempotency-Key", "k3")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	for i, code := range codes {
		if code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, code)
		}
	}
}
