package easyad

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// DecodeSID converts a raw objectSid value to its S-1-... string form.
func DecodeSID(raw []byte) (string, error) {
	// revision byte, subauthority count, 6-byte identifier authority
	if len(raw) < 8 {
		return "", fmt.Errorf("easyad: objectSid too short: %d bytes", len(raw))
	}
	if raw[0] != 1 {
		return "", fmt.Errorf("easyad: unsupported SID revision %d", raw[0])
	}
	if want := 8 + int(raw[1])*4; len(raw) != want {
		return "", fmt.Errorf("easyad: objectSid length %d does not match %d subauthorities", len(raw), raw[1])
	}

	sid := objectsid.Decode(raw)
	return sid.String(), nil
}

// extractSID renders the entry's objectSid. Entries constructed without
// raw bytes may carry the SID as a pre-rendered string value instead.
func extractSID(entry *ldap.Entry) string {
	raw := entry.GetRawAttributeValue("objectSid")
	if len(raw) > 0 {
		if sid, err := DecodeSID(raw); err == nil {
			return sid
		}
		if s := entry.GetAttributeValue("objectSid"); strings.HasPrefix(s, "S-") {
			return s
		}
		return ""
	}
	if s := entry.GetAttributeValue("objectSid"); strings.HasPrefix(s, "S-") {
		return s
	}
	return ""
}
