package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Unknown stands in for a vendor or product id that could not be parsed.
const Unknown = "UNKNOWN"

const (
	maxTokenLen = 30

	// emptyToken replaces a token that normalises to nothing.
	emptyToken = "0000"

	// minPathSegments is the segment count from which the last segment of an
	// instance id is used verbatim as the token.
	minPathSegments = 3
)

var (
	vidPattern = regexp.MustCompile(`(?i)VID_([0-9A-F]{4})`)
	pidPattern = regexp.MustCompile(`(?i)PID_([0-9A-F]{4})`)
	hexID      = regexp.MustCompile(`^[0-9A-F]{4}$`)
)

// tokenNamespace seeds the name-based UUIDs used for hashed tokens.
var tokenNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("peripheral-core/instance-token"))

// ParseInstanceID extracts vendor id, product id and instance token from an
// OS instance id. Vendor and product are upper-case 4-hex strings or
// Unknown. The token is the last backslash-separated segment with every
// non-alphanumeric rune replaced by '_' and truncated to 30 runes; ids with
// fewer than three segments get a deterministic hash token instead.
func ParseInstanceID(instanceID string) (vendorID, productID, token string) {
	if instanceID == "" {
		return Unknown, Unknown, Unknown
	}

	vendorID, productID = Unknown, Unknown
	if m := vidPattern.FindStringSubmatch(instanceID); m != nil {
		vendorID = strings.ToUpper(m[1])
	}
	if m := pidPattern.FindStringSubmatch(instanceID); m != nil {
		productID = strings.ToUpper(m[1])
	}

	segments := strings.Split(instanceID, `\`)
	if len(segments) >= minPathSegments {
		token = normalizeToken(segments[len(segments)-1])
	} else {
		token = hashToken(instanceID)
	}
	return vendorID, productID, token
}

func normalizeToken(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == maxTokenLen {
			break
		}
		if isAlphaNum(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	if b.Len() == 0 {
		return emptyToken
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// hashToken derives an 8-hex-digit token from a SHA-1 name-based UUID of the
// full instance id, so the same id always yields the same token.
func hashToken(instanceID string) string {
	id := uuid.NewSHA1(tokenNamespace, []byte(instanceID))
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// UniqueID formats the per-unit fingerprint.
func UniqueID(vendorID, productID, token string) string {
	return fmt.Sprintf("VID_%s_PID_%s_INST_%s", vendorID, productID, token)
}

// GroupKey formats the key descriptors are merged under.
func GroupKey(vendorID, productID, token string) string {
	return vendorID + "_" + productID + "_" + token
}

// ModelKey formats the per-model key. ok is false unless both ids are
// 4-hex-digit values; unknown models never match anything.
func ModelKey(vendorID, productID string) (key string, ok bool) {
	v := strings.ToUpper(strings.TrimSpace(vendorID))
	p := strings.ToUpper(strings.TrimSpace(productID))
	if !hexID.MatchString(v) || !hexID.MatchString(p) {
		return "", false
	}
	return v + "_" + p, true
}
