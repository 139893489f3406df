package xid

import "github.com/google/uuid"

// New returns a random identifier such as "flt-1b4e28ba2fa1".
func New(prefix string) string {
	id := uuid.NewString()
	return prefix + "-" + id[:8] + id[9:13]
}
