// Package idempotency holds the stored replies that let a client retry a
// non-idempotent request with the same Idempotency-Key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrConflict = errors.New("idempotency key conflicts with existing request")

type Record struct {
	RequestHash string
	Status      int
	Body        []byte
}

// Store persists replies by (scope, key). Save must not overwrite a record
// whose RequestHash differs and returns ErrConflict in that case.
type Store interface {
	LookupIdempotency(ctx context.Context, scope, key string) (Record, bool, error)
	SaveIdempotency(ctx context.Context, scope, key string, rec Record) error
}

func RequestHash(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
