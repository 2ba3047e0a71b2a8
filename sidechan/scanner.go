package sidechan

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Scanner decodes a side-channel stream. Malformed input is never dropped
// silently: it accumulates in a reject buffer so a crashing child's stack
// trace or stray writes remain recoverable as diagnostics.
//
// Not safe for concurrent use; the supervisor reads from a single worker.
type Scanner struct {
	r      *bufio.Reader
	reject strings.Builder
}

// NewScanner wraps r, typically the child process's stderr pipe.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next returns the next well-formed packet. Malformed lines go to the
// reject buffer and scanning continues. Returns io.EOF once the stream is
// exhausted; trailing partial data lands in the reject buffer.
func (s *Scanner) Next() (Message, error) {
	for {
		line, err := s.r.ReadString('\n')
		if line == "" && err != nil {
			return Message{}, err
		}

		if len(line) < HeaderSize+1 || !allDigits(line[:HeaderSize]) {
			s.reject.WriteString(line)
			if err != nil {
				return Message{}, err
			}
			continue
		}

		n, _ := strconv.Atoi(line[:HeaderSize])

		// The payload may contain newlines; keep reading whole lines until
		// the declared length plus its terminator is in hand.
		content := line[HeaderSize:]
		for len(content) < n+1 && err == nil {
			var more string
			more, err = s.r.ReadString('\n')
			content += more
		}

		// A packet is exactly n payload bytes closed by one newline. A lying
		// header or a truncated stream shows up here.
		if len(content) != n+1 || content[n] != '\n' {
			s.reject.WriteString(line[:HeaderSize])
			s.reject.WriteString(content)
			if err != nil {
				return Message{}, err
			}
			continue
		}

		return ParseMessage(content[:n]), nil
	}
}

// Rejected returns everything that failed to decode so far.
func (s *Scanner) Rejected() string {
	return s.reject.String()
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
