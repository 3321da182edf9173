package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a keyset position "id:unix_micro" over (created_at, id) DESC listings.
type Cursor struct {
	ID        int64
	CreatedAt time.Time
}

func NewCursor(id int64, createdAt time.Time) Cursor {
	return Cursor{ID: id, CreatedAt: createdAt.UTC()}
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d:%d", c.ID, c.CreatedAt.UnixMicro())
}

// ParseCursor parses "id:unix_micro". An empty string yields a nil cursor.
func ParseCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	idPart, tsPart, ok := strings.Cut(s, ":")
	if !ok {
		return nil, ErrInvalidCursor
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil || ts < 0 {
		return nil, ErrInvalidCursor
	}
	return &Cursor{ID: id, CreatedAt: time.UnixMicro(ts).UTC()}, nil
}
