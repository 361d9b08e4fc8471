package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 500

	cursorPrefix = "o|"
)

// Params holds pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor marks where the next page starts within a stable ordering.
type Cursor struct {
	Offset int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds an opaque cursor string.
func EncodeCursor(cursor Cursor) string {
	payload := cursorPrefix + strconv.Itoa(cursor.Offset)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string; an empty value yields nil.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return nil, fmt.Errorf("invalid cursor offset %q", raw)
	}
	return &Cursor{Offset: offset}, nil
}
