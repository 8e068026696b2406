package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// Generate returns a sortable id of the form <prefix>_<ulid>.
// An empty prefix yields the bare ulid.
func Generate(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()

	if prefix == "" {
		return id.String()
	}
	return prefix + "_" + id.String()
}
