package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ReplyKind is the tag of a reply line.
type ReplyKind string

const (
	KindDone ReplyKind = "DONE"
	KindData ReplyKind = "DATA"
	KindNope ReplyKind = "NOPE"
	KindOver ReplyKind = "OVER"
)

// ErrMalformedReply is returned by ParseReply for lines that are not
// replies.
var ErrMalformedReply = errors.New("malformed reply")

// Reply is one response line.
type Reply struct {
	Kind    ReplyKind
	Data    []int
	Message string
}

func Done() Reply               { return Reply{Kind: KindDone} }
func Data(values ...int) Reply  { return Reply{Kind: KindData, Data: values} }
func Nope(message string) Reply { return Reply{Kind: KindNope, Message: message} }
func Over(message string) Reply { return Reply{Kind: KindOver, Message: message} }

// Terminal reports whether the connection ends after this reply.
func (r Reply) Terminal() bool { return r.Kind == KindOver }

// String encodes the reply as a line without the newline. Message line
// breaks are flattened so a reply always fits on one line.
func (r Reply) String() string {
	switch r.Kind {
	case KindData:
		var b strings.Builder
		b.WriteString(string(KindData))
		for _, v := range r.Data {
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(v))
		}
		return b.String()
	case KindNope, KindOver:
		msg := strings.Join(strings.Fields(r.Message), " ")
		if msg == "" {
			return string(r.Kind)
		}
		return string(r.Kind) + " " + msg
	default:
		return string(KindDone)
	}
}

// ParseReply decodes a reply line.
func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 4 {
		return Reply{}, fmt.Errorf("%w: %q", ErrMalformedReply, line)
	}
	tag, rest := ReplyKind(line[:4]), strings.TrimSpace(line[4:])

	switch tag {
	case KindDone:
		return Done(), nil
	case KindNope, KindOver:
		return Reply{Kind: tag, Message: rest}, nil
	case KindData:
		fields := strings.Fields(rest)
		values := make([]int, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return Reply{}, fmt.Errorf("%w: bad DATA value %q", ErrMalformedReply, f)
			}
			values = append(values, v)
		}
		return Data(values...), nil
	}
	return Reply{}, fmt.Errorf("%w: unknown tag %q", ErrMalformedReply, tag)
}
