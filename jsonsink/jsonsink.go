// Package jsonsink streams a Connection's events to disk as a single
// top-level JSON array, appending incrementally rather than buffering the
// whole array in memory and writing it once at close.
package jsonsink

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/netsnitch/netsnitch/event"
)

// Sink writes one Connection's events.json. Framing: the opening "[\n" is
// written before the first event, a ",\n" separates each subsequent event,
// and the closing "\n]" is written exactly once, by Close.
type Sink struct {
	file    *os.File
	logger  *logrus.Entry
	wrote   bool
	closed  bool
}

// Open creates (or truncates) path and returns a Sink ready to accept
// events.
func Open(path string, logger *logrus.Entry) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("jsonsink: open %s: %w", path, err)
	}
	return &Sink{file: f, logger: logger}, nil
}

// Append writes one batch of events as array elements, emitting the framing
// prefix ("[\n" or ",\n") each call requires.
//
// Open Question O1: if the write fails partway through a batch, the batch
// is dropped -- not retried and not buffered for the next call -- and the
// error is logged at ERROR. The connection's event log in memory is
// unaffected; only the on-disk mirror misses the batch. This matches the
// original tool's behavior of never blocking a traced call on log I/O.
func (s *Sink) Append(events []*event.Event) {
	if s.closed || len(events) == 0 {
		return
	}

	for _, ev := range events {
		prefix := ",\n"
		if !s.wrote {
			prefix = "[\n"
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			s.logger.WithError(err).Error("jsonsink: marshal event failed, dropping")
			continue
		}
		if _, err := s.file.WriteString(prefix); err != nil {
			s.logger.WithError(err).Error("jsonsink: write framing failed, dropping batch")
			return
		}
		if _, err := s.file.Write(raw); err != nil {
			s.logger.WithError(err).Error("jsonsink: write event failed, dropping batch")
			return
		}
		s.wrote = true
	}
}

// Close writes the final "\n]" closing the array and closes the underlying
// file. It is idempotent and safe to call even if no events were ever
// appended (the array degenerates to "[\n\n]" so the file remains valid JSON).
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if !s.wrote {
		if _, err := s.file.WriteString("[\n"); err != nil {
			s.file.Close()
			return fmt.Errorf("jsonsink: close: %w", err)
		}
	}
	if _, err := s.file.WriteString("\n]"); err != nil {
		s.file.Close()
		return fmt.Errorf("jsonsink: close: %w", err)
	}
	return s.file.Close()
}
