package core

// streaming.go provides the readers that sit between an incoming batch and
// the engine's CSV reader:
//
//   - bomSkippingReader drops a leading UTF-8 BOM added by spreadsheet exports
//   - utf8SanitizingReader replaces invalid UTF-8 with U+FFFD
//   - sizeLimitedReader fails with ErrBatchTooLarge past a byte budget
//
// Use SanitizeBatch to apply all of them in the correct order.

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrBatchTooLarge is returned once a batch exceeds the configured size.
var ErrBatchTooLarge = errors.New("batch file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SanitizeBatch wraps r so the engine sees at most maxBytes of BOM-free,
// valid UTF-8. maxBytes <= 0 disables the size limit.
func SanitizeBatch(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes > 0 {
		r = &sizeLimitedReader{r: r, remaining: maxBytes}
	}
	return newUTF8SanitizingReader(newBOMSkippingReader(r))
}

type bomSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{br: bufio.NewReader(r)}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		} else if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
	}
	return r.br.Read(p)
}

type utf8SanitizingReader struct {
	src   io.Reader
	buf   []byte
	carry []byte // incomplete rune from the previous chunk
	out   []byte
	err   error
}

func newUTF8SanitizingReader(r io.Reader) *utf8SanitizingReader {
	return &utf8SanitizingReader{src: r, buf: make([]byte, 32*1024)}
}

func (s *utf8SanitizingReader) Read(p []byte) (int, error) {
	for len(s.out) == 0 && s.err == nil {
		s.fill()
	}
	if len(s.out) == 0 {
		return 0, s.err
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *utf8SanitizingReader) fill() {
	n, err := s.src.Read(s.buf)
	s.err = err

	data := append(s.carry, s.buf[:n]...)
	s.carry = nil

	out := s.out[:0]
	for len(data) > 0 {
		if err == nil && !utf8.FullRune(data) {
			s.carry = append([]byte(nil), data...)
			break
		}
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
		} else {
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	s.out = out
}

type sizeLimitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// Probe for one more byte to tell "exactly at limit" from "over".
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, ErrBatchTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
