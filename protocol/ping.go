package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

const pingTag = "~h~"

// SerializePing renders the ping envelope body for nonce.
func SerializePing(nonce uint64) string {
	return fmt.Sprintf("%s%d", pingTag, nonce)
}

// ParsePing parses a full ping envelope body (already extracted from its
// surrounding "~m~...~m~" wrapper) and returns the nonce.
func ParsePing(body string) (nonce uint64, err error) {
	if !strings.HasPrefix(body, pingTag) {
		return 0, &FramingError{Reason: "ping body missing ~h~ prefix"}
	}
	digits := body[len(pingTag):]
	if digits == "" {
		return 0, &FramingError{Reason: "ping body has no nonce digits"}
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return 0, &FramingError{Reason: "ping nonce contains a non-digit character"}
		}
	}
	n, convErr := strconv.ParseUint(digits, 10, 64)
	if convErr != nil {
		return 0, &FramingError{Reason: "ping nonce does not fit a 64-bit count"}
	}
	return n, nil
}

// IsPingBody reports whether body looks like a ping envelope, used by the
// message parser to route before attempting JSON decoding.
func IsPingBody(body string) bool {
	return strings.HasPrefix(body, pingTag)
}
