package ledgerrepo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadCursor is returned when a continuation cursor can't be decoded.
var ErrBadCursor = errors.New("malformed pagination cursor")

type cursorPos struct {
	createdAt time.Time
	entryID   string
}

func encodeCursor(createdAt time.Time, entryID string) string {
	raw := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), entryID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (*cursorPos, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrBadCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, ErrBadCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, ErrBadCursor
	}
	return &cursorPos{createdAt: createdAt, entryID: parts[1]}, nil
}
