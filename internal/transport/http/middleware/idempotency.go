package middleware

import (
	"bytes"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"appraisal/internal/platform/idempotency"
	"appraisal/internal/transport/http/api"
)

const maxIdempotencyKeyLength = 255

// keyLocks serialises requests that share a scope and key inside one
// process, so the lookup and the save of a first request cannot interleave
// with a duplicate. Replicas are not covered: there the later save meets
// ErrConflict or overwrites an identical reply.
type keyLocks [64]sync.Mutex

func (l *keyLocks) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &l[h.Sum32()%uint32(len(l))]
	m.Lock()
	return m.Unlock
}

type replayRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *replayRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *replayRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotent replays the stored reply when a request repeats an
// Idempotency-Key with the same method, path and body. A reused key with a
// different request is refused with 409. Requests without the header are
// passed through. Server errors and throttled replies are not stored.
// Concurrent duplicates wait for the first request and then replay it.
func Idempotent(store idempotency.Store) func(http.Handler) http.Handler {
	locks := new(keyLocks)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())
			if len(key) > maxIdempotencyKeyLength {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key too long", reqID)
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))

			scope := idempotencyScope(r)
			hash := idempotency.RequestHash([]byte(r.Method), []byte(r.URL.Path), payload)
			unlock := locks.lock(scope + "|" + key)
			defer unlock()

			stored, found, err := store.LookupIdempotency(r.Context(), scope, key)
			if err != nil {
				slog.WarnContext(r.Context(), "idempotency lookup failed", "err", err)
				api.Fail(w, http.StatusBadGateway, "store_error", "idempotency lookup failed", reqID)
				return
			}
			if found {
				if stored.RequestHash != hash {
					api.Fail(w, http.StatusConflict, "idempotency_conflict", idempotency.ErrConflict.Error(), reqID)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			rec := &replayRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 || rec.status >= http.StatusInternalServerError || rec.status == http.StatusTooManyRequests {
				return
			}
			err = store.SaveIdempotency(r.Context(), scope, key, idempotency.Record{
				RequestHash: hash,
				Status:      rec.status,
				Body:        rec.body.Bytes(),
			})
			if err != nil && !errors.Is(err, idempotency.ErrConflict) {
				slog.WarnContext(r.Context(), "idempotency save failed", "err", err)
			}
		})
	}
}

func idempotencyScope(r *http.Request) string {
	actor := "anonymous"
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		actor = user.UserID
	}
	return actor + ":" + r.URL.Path
}
