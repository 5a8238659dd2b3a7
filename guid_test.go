package easyad

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGUIDBytes = []byte{
	0x78, 0x56, 0x34, 0x12, // Data1, little-endian
	0x34, 0x12, // Data2, little-endian
	0x34, 0x12, // Data3, little-endian
	0x12, 0x34, 0x56, 0x78, 0x90, 0x12, 0x34, 0x56, // Data4, big-endian
}

const testGUIDString = "12345678-1234-1234-1234-567890123456"

func TestDecodeGUID(t *testing.T) {
	t.Run("mixed endian layout", func(t *testing.T) {
		guid, err := DecodeGUID(testGUIDBytes)
		require.NoError(t, err)
		assert.Equal(t, testGUIDString, guid)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := DecodeGUID([]byte{0x01, 0x02})
		assert.Error(t, err)

		_, err = DecodeGUID(nil)
		assert.Error(t, err)
	})
}

func TestEncodeGUID(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		raw, err := EncodeGUID(testGUIDString)
		require.NoError(t, err)
		assert.Equal(t, testGUIDBytes, raw)

		guid, err := DecodeGUID(raw)
		require.NoError(t, err)
		assert.Equal(t, testGUIDString, guid)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := EncodeGUID("not-a-guid")
		assert.Error(t, err)
	})
}

func TestExtractGUID(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		entry := &ldap.Entry{
			DN: "CN=Bob,DC=example,DC=com",
			Attributes: []*ldap.EntryAttribute{
				{Name: "objectGUID", ByteValues: [][]byte{testGUIDBytes}},
			},
		}
		assert.Equal(t, testGUIDString, extractGUID(entry))
	})

	t.Run("absent", func(t *testing.T) {
		entry := &ldap.Entry{DN: "CN=Bob,DC=example,DC=com"}
		assert.Equal(t, "", extractGUID(entry))
	})

	t.Run("malformed", func(t *testing.T) {
		entry := &ldap.Entry{
			DN: "CN=Bob,DC=example,DC=com",
			Attributes: []*ldap.EntryAttribute{
				{Name: "objectGUID", ByteValues: [][]byte{{0x01}}},
			},
		}
		assert.Equal(t, "", extractGUID(entry))
	})
}
