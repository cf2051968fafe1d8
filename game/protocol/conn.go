package protocol

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// MaxLineLength bounds a request line, newline included.
const MaxLineLength = 256

// ErrLineTooLong is returned by ReadLine for an oversized line. The line is
// discarded and the connection stays usable.
var ErrLineTooLong = errors.New("line too long")

// Conn is a bidirectional line channel to one client.
type Conn interface {
	// ReadLine returns the next line without its terminator.
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// StreamConn implements Conn over a byte stream such as a TCP connection.
type StreamConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeTimeout time.Duration

	wmu sync.Mutex
}

// NewStreamConn wraps c. A positive writeTimeout bounds every write.
func NewStreamConn(c net.Conn, writeTimeout time.Duration) *StreamConn {
	return &StreamConn{
		conn:         c,
		reader:       bufio.NewReaderSize(c, MaxLineLength),
		writeTimeout: writeTimeout,
	}
}

func (s *StreamConn) ReadLine() (string, error) {
	line, err := s.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = s.reader.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", ErrLineTooLong
	}
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimRight(string(line), "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (s *StreamConn) WriteLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(s.conn, line+"\n")
	return err
}

func (s *StreamConn) Close() error { return s.conn.Close() }

func (s *StreamConn) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
