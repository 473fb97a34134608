package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Frame is one dispatched event-stream frame.
type Frame struct {
	Event string
	Data  string
}

var errFrameTooLarge = errors.New("frame exceeds size limit")

// scanner reads frames from an event stream.
type scanner struct {
	reader    *bufio.Reader
	limit     int
	line      bytes.Buffer
	data      []string
	event     string
	size      int
	oversize  bool
	pendingCR bool
}

// next returns the next frame. A frame over the limit is consumed and reported
// with errFrameTooLarge; any other error ends the stream.
func (s *scanner) next() (*Frame, error) {
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			if frame, err := s.dispatch(); frame != nil || err != nil {
				return frame, err
			}
			continue
		}
		s.field(line)
	}
}

func (s *scanner) dispatch() (*Frame, error) {
	defer func() {
		s.data = s.data[:0]
		s.event = ""
		s.size = 0
		s.oversize = false
	}()
	if s.oversize {
		return nil, fmt.Errorf("%w: %d bytes", errFrameTooLarge, s.size)
	}
	if len(s.data) == 0 {
		return nil, nil
	}
	return &Frame{Event: s.event, Data: strings.Join(s.data, "\n")}, nil
}

func (s *scanner) field(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}
	name, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")
	switch name {
	case "data":
		s.size += len(value) + 1
		if s.size > s.limit {
			s.oversize = true
			s.data = s.data[:0]
			return
		}
		if !s.oversize {
			s.data = append(s.data, value)
		}
	case "event":
		s.event = value
	}
}

// readLine returns a line without its terminator. A CR ends the line at once;
// an LF right after it belongs to the same terminator and is skipped by the
// next read, so a CRLF split across reads is one terminator.
func (s *scanner) readLine() (string, error) {
	s.line.Reset()
	overflow := false
	for {
		b, err := s.reader.ReadByte()
		if s.pendingCR {
			s.pendingCR = false
			if err == nil && b == '\n' {
				continue
			}
		}
		if err != nil {
			if err == io.EOF && s.line.Len() > 0 {
				// unterminated last line cannot complete a frame
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch b {
		case '\n':
			return s.result(overflow), nil
		case '\r':
			s.pendingCR = true
			return s.result(overflow), nil
		}
		if s.line.Len() > s.limit {
			overflow = true
			continue
		}
		s.line.WriteByte(b)
	}
}

func (s *scanner) result(overflow bool) string {
	if overflow {
		s.oversize = true
		s.size = s.limit + 1
		return "data:"
	}
	return s.line.String()
}

func newScanner(r io.Reader, limit int) *scanner {
	return &scanner{reader: bufio.NewReader(r), limit: limit}
}
