package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

var ErrUnreadable = errors.New("file is not valid UTF-8 text")

// DefaultMaxFileBytes bounds what PlainTextExtractor will read.
const DefaultMaxFileBytes = 32 << 20

// PlainTextExtractor reads UTF-8 text files. Other formats are expected to be
// converted to text before they are queued.
type PlainTextExtractor struct {
	MaxBytes int64
}

func (e PlainTextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	if info.Size() > limit {
		return "", fmt.Errorf("file is %d bytes, limit is %d", info.Size(), limit)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrUnreadable
	}
	return string(data), nil
}
