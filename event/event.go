// Package event defines the tagged record that the engine appends to a
// Connection for every interposed system call.
package event

import (
	"encoding/json"
	"time"
)

// Kind identifies which system call an Event describes.
type Kind uint8

const (
	Socket Kind = iota
	Bind
	Connect
	Shutdown
	Listen
	Setsockopt
	Send
	Recv
	Sendto
	Recvfrom
	Sendmsg
	Recvmsg
	Write
	Read
	Close
	Writev
	Readv
	TCPInfo
)

var kindNames = map[Kind]string{
	Socket:     "socket",
	Bind:       "bind",
	Connect:    "connect",
	Shutdown:   "shutdown",
	Listen:     "listen",
	Setsockopt: "setsockopt",
	Send:       "send",
	Recv:       "recv",
	Sendto:     "sendto",
	Recvfrom:   "recvfrom",
	Sendmsg:    "sendmsg",
	Recvmsg:    "recvmsg",
	Write:      "write",
	Read:       "read",
	Close:      "close",
	Writev:     "writev",
	Readv:      "readv",
	TCPInfo:    "tcp_info",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Header carries the fields common to every Event variant.
type Header struct {
	ID          uint64    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        Kind      `json:"kind"`
	ReturnValue int       `json:"returnValue"`
	Success     bool      `json:"success"`
	ErrorStr    *string   `json:"error,omitempty"`
}

// Event is a tagged record: Header plus a Kind-specific Payload.
type Event struct {
	Header
	Payload any `json:"payload,omitempty"`
}

// isSuccess implements the per-kind success predicate from spec.md §4.2.
func isSuccess(kind Kind, returnValue int) bool {
	switch kind {
	case Socket:
		return returnValue != 0
	case Close:
		return returnValue == 0
	default:
		return returnValue != -1
	}
}

// New builds an Event with its header populated per spec.md §4.2: timestamp
// from wall-clock time, Success from the per-kind predicate, and ErrorStr set
// to errStr when the call did not succeed and errStr is non-empty. id must be the connection-local, 0-based
// sequence number the caller intends to assign (normally Connection.Append
// overwrites it, but New needs a value to compute the header consistently).
func New(kind Kind, returnValue int, errStr string, id uint64) *Event {
	success := isSuccess(kind, returnValue)
	ev := &Event{
		Header: Header{
			ID:          id,
			Timestamp:   time.Now(),
			Kind:        kind,
			ReturnValue: returnValue,
			Success:     success,
		},
	}
	if !success && errStr != "" {
		ev.ErrorStr = &errStr
	}
	return ev
}

// MarshalJSON writes one JSON object per event for the streaming array
// framing in jsonsink: the Header fields sit at the top level of that
// object, and the variant's fields are nested under "payload".
func (e *Event) MarshalJSON() ([]byte, error) {
	type alias Header
	out := struct {
		alias
		Payload any `json:"payload,omitempty"`
	}{alias: alias(e.Header), Payload: e.Payload}
	return json.Marshal(out)
}
