package easyad

import (
	"encoding/base64"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntries(t *testing.T) {
	t.Run("single value collapses to scalar", func(t *testing.T) {
		raw := ldap.NewEntry("CN=Bob,DC=example,DC=com", map[string][]string{
			"sAMAccountName": {"bob"},
		})

		entries := DecodeEntries([]*ldap.Entry{raw}, DecodeOptions{})
		require.Len(t, entries, 1)
		assert.Equal(t, "CN=Bob,DC=example,DC=com", entries[0].DN)
		assert.Equal(t, "bob", entries[0].Attributes["sAMAccountName"])
	})

	t.Run("multi value preserves order", func(t *testing.T) {
		raw := ldap.NewEntry("CN=Bob,DC=example,DC=com", map[string][]string{
			"memberOf": {"CN=zebra", "CN=apps"},
		})

		entries := DecodeEntries([]*ldap.Entry{raw}, DecodeOptions{})
		require.Len(t, entries, 1)
		assert.Equal(t, []any{"CN=zebra", "CN=apps"}, entries[0].Attributes["memberOf"])
	})

	t.Run("binary value kept as bytes", func(t *testing.T) {
		photo := []byte{0xff, 0xd8, 0xff, 0xe0}
		raw := &ldap.Entry{
			DN: "CN=Bob,DC=example,DC=com",
			Attributes: []*ldap.EntryAttribute{
				{Name: "thumbnailPhoto", ByteValues: [][]byte{photo}},
			},
		}

		entries := DecodeEntries([]*ldap.Entry{raw}, DecodeOptions{})
		require.Len(t, entries, 1)
		assert.Equal(t, photo, entries[0].Attributes["thumbnailPhoto"])
	})

	t.Run("binary value base64 when serialization safe", func(t *testing.T) {
		photo := []byte{0xff, 0xd8, 0xff, 0xe0}
		raw := &ldap.Entry{
			DN: "CN=Bob,DC=example,DC=com",
			Attributes: []*ldap.EntryAttribute{
				{Name: "thumbnailPhoto", ByteValues: [][]byte{photo}},
			},
		}

		entries := DecodeEntries([]*ldap.Entry{raw}, DecodeOptions{SerializationSafe: true})
		require.Len(t, entries, 1)

		encoded, ok := entries[0].Attributes["thumbnailPhoto"].(string)
		require.True(t, ok)
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, photo, decoded)
	})

	t.Run("utf8 values untouched by serialization safe", func(t *testing.T) {
		raw := ldap.NewEntry("CN=Bob,DC=example,DC=com", map[string][]string{
			"displayName": {"Bob Müller"},
		})

		entries := DecodeEntries([]*ldap.Entry{raw}, DecodeOptions{SerializationSafe: true})
		require.Len(t, entries, 1)
		assert.Equal(t, "Bob Müller", entries[0].Attributes["displayName"])
	})

	t.Run("nil entries skipped", func(t *testing.T) {
		raw := ldap.NewEntry("CN=Bob,DC=example,DC=com", nil)
		entries := DecodeEntries([]*ldap.Entry{nil, raw, nil}, DecodeOptions{})
		assert.Len(t, entries, 1)
	})
}

func TestDirectoryEntryAccessors(t *testing.T) {
	entry := &DirectoryEntry{
		DN: "CN=Bob,DC=example,DC=com",
		Attributes: map[string]any{
			"sAMAccountName": "bob",
			"memberOf":       []any{"CN=apps", "CN=staff"},
		},
	}

	t.Run("case insensitive lookup", func(t *testing.T) {
		assert.True(t, entry.Has("samaccountname"))
		assert.Equal(t, "bob", entry.GetString("SAMACCOUNTNAME"))
		assert.False(t, entry.Has("mail"))
	})

	t.Run("get string from list", func(t *testing.T) {
		assert.Equal(t, "CN=apps", entry.GetString("memberOf"))
	})

	t.Run("get strings from scalar", func(t *testing.T) {
		assert.Equal(t, []string{"bob"}, entry.GetStrings("sAMAccountName"))
	})

	t.Run("get strings from list", func(t *testing.T) {
		assert.Equal(t, []string{"CN=apps", "CN=staff"}, entry.GetStrings("memberOf"))
	})

	t.Run("missing attribute", func(t *testing.T) {
		assert.Equal(t, "", entry.GetString("mail"))
		assert.Nil(t, entry.GetStrings("mail"))
	})
}

func TestSortAttribute(t *testing.T) {
	t.Run("case insensitive order", func(t *testing.T) {
		entry := &DirectoryEntry{
			Attributes: map[string]any{
				"memberOf": []any{"CN=zebra", "CN=Admins", "CN=apps"},
			},
		}

		entry.sortAttribute("memberOf")
		assert.Equal(t, []any{"CN=Admins", "CN=apps", "CN=zebra"}, entry.Attributes["memberOf"])
	})

	t.Run("scalar untouched", func(t *testing.T) {
		entry := &DirectoryEntry{
			Attributes: map[string]any{"memberOf": "CN=only"},
		}

		entry.sortAttribute("memberOf")
		assert.Equal(t, "CN=only", entry.Attributes["memberOf"])
	})

	t.Run("missing attribute is a no-op", func(t *testing.T) {
		entry := &DirectoryEntry{Attributes: map[string]any{}}
		entry.sortAttribute("memberOf")
		assert.Empty(t, entry.Attributes)
	})
}
