package easyad

import "strings"

// Ref identifies a user or group for membership operations. Build one with
// DN, ID, or Entry depending on what the caller already holds.
type Ref interface {
	ref() refValue
}

type refValue struct {
	dn    string
	id    string
	entry *DirectoryEntry
}

// DN references an object by its distinguished name, skipping any lookup.
type DN string

func (d DN) ref() refValue { return refValue{dn: string(d)} }

// ID references an object by a friendly identifier (sAMAccountName, UPN,
// mail, or CN depending on the object kind). Identifiers that already look
// like a distinguished name are used directly; anything else is resolved
// with a lookup.
type ID string

func (i ID) ref() refValue { return refValue{id: string(i)} }

// Entry references an already-fetched directory entry.
func Entry(e *DirectoryEntry) Ref { return entryRef{e} }

type entryRef struct {
	entry *DirectoryEntry
}

func (r entryRef) ref() refValue { return refValue{entry: r.entry} }

// looksLikeDN reports whether an identifier starts with a CN= component.
func looksLikeDN(identifier string) bool {
	return len(identifier) >= 3 && strings.EqualFold(identifier[:3], "cn=")
}
