package easyad

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// DecodeGUID converts a raw objectGUID value to its canonical string form.
// Active Directory stores GUIDs in mixed-endian layout: the first three
// groups are little-endian, the remainder big-endian.
func DecodeGUID(raw []byte) (string, error) {
	if len(raw) != 16 {
		return "", fmt.Errorf("easyad: objectGUID must be 16 bytes, got %d", len(raw))
	}

	var std [16]byte

	// Data1 (4 bytes): reverse byte order
	std[0], std[1], std[2], std[3] = raw[3], raw[2], raw[1], raw[0]
	// Data2 (2 bytes): reverse byte order
	std[4], std[5] = raw[5], raw[4]
	// Data3 (2 bytes): reverse byte order
	std[6], std[7] = raw[7], raw[6]
	// Data4 (8 bytes): already big-endian
	copy(std[8:], raw[8:])

	id, err := uuid.FromBytes(std[:])
	if err != nil {
		return "", fmt.Errorf("easyad: invalid objectGUID: %w", err)
	}
	return id.String(), nil
}

// EncodeGUID converts a canonical GUID string back to the mixed-endian
// binary layout AD stores in objectGUID. Useful for building search
// filters against the attribute.
func EncodeGUID(s string) ([]byte, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("easyad: invalid GUID %q: %w", s, err)
	}

	std := id[:]
	raw := make([]byte, 16)
	raw[0], raw[1], raw[2], raw[3] = std[3], std[2], std[1], std[0]
	raw[4], raw[5] = std[5], std[4]
	raw[6], raw[7] = std[7], std[6]
	copy(raw[8:], std[8:])
	return raw, nil
}

// extractGUID renders the entry's objectGUID, or "" when the attribute is
// absent or malformed.
func extractGUID(entry *ldap.Entry) string {
	raw := entry.GetRawAttributeValue("objectGUID")
	if len(raw) != 16 {
		return ""
	}
	guid, err := DecodeGUID(raw)
	if err != nil {
		return ""
	}
	return guid
}
