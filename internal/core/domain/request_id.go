package domain

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// GenerateRequestID creates a deterministic identifier for a request from its name and source text.
func GenerateRequestID(name, source string) string {
	hasher := xxhash.New()
	_, _ = hasher.WriteString(name)
	_, _ = hasher.WriteString("\x00")
	_, _ = hasher.WriteString(source)
	return name + "#" + strconv.FormatUint(hasher.Sum64(), 16)
}
