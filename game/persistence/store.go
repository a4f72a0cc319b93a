package persistence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrCorrupt    = errors.New("record is corrupt")
	ErrInvalidKey = errors.New("invalid record key")
)

// Store is a keyed record store. Values are opaque JSON documents; every
// write replaces the whole record.
type Store interface {
	// Get returns the record for key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the record for key
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the record for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Update runs fn on the current value (nil when absent) and stores the
	// result atomically with respect to other writers of the same store.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error

	// List returns the keys starting with prefix in lexical order
	List(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

var keySegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateKey checks that key is a '/' separated list of safe segments
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for _, seg := range strings.Split(key, "/") {
		if !keySegment.MatchString(seg) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// SessionKey is the record key of a profile's adventure for one theme
func SessionKey(profile, themeID string) string {
	return profile + "/session/" + themeID
}

// StatsKey is the record key of a profile's lifetime stats
func StatsKey(profile string) string {
	return profile + "/stats"
}

// IdentityKey is the record key of a profile's remembered identity code
func IdentityKey(profile string) string {
	return profile + "/identity"
}
