package requestid

import (
	"strings"

	"github.com/google/uuid"
)

// Header is the request and response header carrying the request id.
const Header = "X-Request-Id"

// maxLen bounds ids accepted from clients so a caller cannot stuff
// arbitrary payloads into every log line.
const maxLen = 128

func New() string {
	return uuid.NewString()
}

// FromHeader returns the caller-supplied id when it is usable, or a
// freshly generated one.
func FromHeader(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxLen || strings.ContainsAny(id, "\r\n\"") {
		return New()
	}
	return id
}
