package svgns

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	suffixSeq       atomic.Uint64
)

// CleanName strips every character that is not allowed in the suffix.
func CleanName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "")
}

// randomToken is unique within the process: a base-36 sequence number
// followed by four random hex digits.
func randomToken() string {
	id := uuid.New()
	return strconv.FormatUint(suffixSeq.Add(1), 36) + hex.EncodeToString(id[:2])
}

func makeSuffix(name, token string) string {
	return "_" + CleanName(name) + "_" + token
}
