// Package idgen allocates the opaque correlation ids handed to browsers.
package idgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	sessionPrefix = "session"
	userPrefix    = "user"
	randomLen     = 12
)

// NewSessionID returns a new id for a chat session.
func NewSessionID() string {
	return newID(sessionPrefix)
}

// NewUserID returns a new id for an anonymous browser user.
func NewUserID() string {
	return newID(userPrefix)
}

// newID combines wall-clock milliseconds with random hex from a v4 UUID. The values are
// correlation keys, not secrets.
func newID(prefix string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), random[:randomLen])
}
