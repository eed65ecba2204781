package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random, prefixed identifier such as "sale-3f2c...".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
