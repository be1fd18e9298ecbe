package util

import (
	"strings"

	"github.com/google/uuid"
)

// ShortID returns the first 8 hex digits of a random UUID. It identifies
// participants and sessions in logs and signaling envelopes; uniqueness is
// only needed among the handful of peers sharing one bus.
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
