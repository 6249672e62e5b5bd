package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
)

// EventStream yields runtime events one at a time. Next returns io.EOF when
// the stream is exhausted.
type EventStream interface {
	Next(ctx context.Context) (Event, error)
}

// JSONLStream reads newline-delimited event envelopes from an io.Reader,
// which is how the runtime process hands its transcript to this layer.
// Malformed lines are skipped with a warning instead of aborting the
// session.
type JSONLStream struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLStream wraps r in a line-oriented event decoder. Lines up to 1 MiB
// are accepted; agent text blocks can be large.
func NewJSONLStream(r io.Reader) *JSONLStream {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLStream{scanner: sc}
}

func (s *JSONLStream) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read event stream: %w", err)
			}
			return nil, io.EOF
		}
		s.line++

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		ev, err := DecodeEvent([]byte(line))
		if err != nil {
			log.Printf("skip event stream line %d: %v", s.line, err)
			continue
		}
		return ev, nil
	}
}
