// Package notify delivers rendered text to a chat destination.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Notifier delivers one message. Delivery failures are returned, never dropped.
//
//go:generate mockgen -package=notify -destination=mock_notifier.go -source=notify.go Notifier
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Console prints messages instead of sending them. Used for dry runs.
type Console struct {
	W io.Writer

	mu sync.Mutex
}

func (c *Console) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.W, "%s\n%s\n", strings.Repeat("-", 40), text)
	return err
}

// Split cuts text into pieces of at most limit runes, preferring line breaks.
// It is the last resort for texts that were not chunked upstream.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var out []string
	r := []rune(text)
	for len(r) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		if piece := strings.TrimRight(string(r[:cut]), "\n"); piece != "" {
			out = append(out, piece)
		}
		r = r[cut:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
