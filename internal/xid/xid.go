package xid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns "<prefix>-<unix millis>-<8 hex chars>", sortable by creation time.
func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// Token returns an unguessable identifier for sessions (carts, recovery flows).
func Token() string {
	return uuid.NewString()
}
