package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrRead marks a failed read from a backing store
	ErrRead = errors.New("store read failed")
	// ErrWrite marks a failed write to a backing store
	ErrWrite = errors.New("store write failed")
	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidPageToken is returned for a page token this store did not issue
	ErrInvalidPageToken = errors.New("invalid page token")
)

// ReadError wraps err as a read failure of the named store
func ReadError(store string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRead, store, err)
}

// WriteError wraps err as a write failure of the named store
func WriteError(store string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWrite, store, err)
}

// EncodePageToken renders a resume key as an opaque token
func EncodePageToken(key map[string]string) string {
	if len(key) == 0 {
		return ""
	}
	b, err := json.Marshal(key)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodePageToken reverses EncodePageToken. An empty token yields a nil key.
func DecodePageToken(token string) (map[string]string, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var key map[string]string
	if err := json.Unmarshal(b, &key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return key, nil
}
