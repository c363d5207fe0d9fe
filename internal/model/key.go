package model

import (
	"fmt"
	"strings"
)

// Key identifies an entity (status, user, list, room) on a specific
// backend instance. The same ID may exist on different hosts, so the
// pair is the unit of identity everywhere in the cache.
type Key struct {
	ID   string
	Host string
}

// NewKey creates a key from an ID and host
func NewKey(id, host string) Key {
	return Key{ID: id, Host: host}
}

// String encodes the key as "id@host"
func (k Key) String() string {
	return k.ID + "@" + k.Host
}

// IsZero reports whether the key is empty
func (k Key) IsZero() bool {
	return k.ID == "" && k.Host == ""
}

// ParseKey parses a key encoded by String. The ID itself may contain
// '@' (Bluesky AT-URIs do), so the split is on the last separator.
func ParseKey(s string) (Key, error) {
	idx := strings.LastIndex(s, "@")
	if idx <= 0 || idx == len(s)-1 {
		return Key{}, fmt.Errorf("invalid key %q: want id@host", s)
	}
	return Key{ID: s[:idx], Host: s[idx+1:]}, nil
}
