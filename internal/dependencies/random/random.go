package random

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Random supplies the identifiers the coordinator hands out
type Random interface {
	// String returns length characters drawn uniformly from alphabet
	String(length int, alphabet string) string

	// ID returns a fresh opaque session identifier
	ID() string
}

// Source draws codes from crypto/rand and ids from uuid v4
type Source struct{}

// New creates a Source
func New() *Source {
	return &Source{}
}

func (Source) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

func (Source) ID() string {
	return uuid.NewString()
}
