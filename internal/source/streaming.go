package source

// Readers that clean up byte streams before CSV decoding, one rune at a
// time so memory stays bounded by the buffer size:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF), common in files saved on Windows, is dropped
//   - invalid UTF-8 bytes become '?' so one bad byte never expands the stream
//   - the total size is capped

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrTooLarge is returned once a capped stream exceeds its limit.
var ErrTooLarge = errors.New("source exceeds size limit")

// Wrap applies BOM skipping and UTF-8 sanitizing. maxBytes <= 0 disables
// the size cap.
func Wrap(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes > 0 {
		r = &cappedReader{r: r, remaining: maxBytes}
	}
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return &sanitizer{br: br}
}

// sanitizer re-encodes the stream rune by rune.
type sanitizer struct {
	br      *bufio.Reader
	pending []byte // tail of a rune that did not fit in the caller's buffer
}

func (s *sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if r == utf8.RuneError && size == 1 {
			r = '?'
		}

		var enc [utf8.UTFMax]byte
		w := utf8.EncodeRune(enc[:], r)
		c := copy(p[n:], enc[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], enc[c:w]...)
		}

		// Return what we have rather than block on a slow source.
		if s.br.Buffered() == 0 && len(s.pending) == 0 {
			return n, nil
		}
	}
	return n, nil
}

type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		// One byte of lookahead tells EOF apart from an oversize stream.
		var peek [1]byte
		n, err := c.r.Read(peek[:])
		if n > 0 {
			return 0, ErrTooLarge
		}
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
