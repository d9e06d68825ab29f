package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Event is one security-relevant outcome. It never carries tokens,
// secrets or key material.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(append(data, '\n'))
}

// LogSink writes events as structured log lines at verbosity V(1).
type LogSink struct {
	log logr.Logger
}

func NewLogSink(log logr.Logger) *LogSink {
	return &LogSink{log: log.WithName("audit")}
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	kv := []any{
		"event", event.EventType,
		"success", event.Success,
	}
	if event.UserID != "" {
		kv = append(kv, "user_id", event.UserID)
	}
	if event.SessionID != "" {
		kv = append(kv, "session_id", event.SessionID)
	}
	if event.IP != "" {
		kv = append(kv, "ip", event.IP)
	}
	if event.Reason != "" {
		kv = append(kv, "reason", event.Reason)
	}
	for k, v := range event.Metadata {
		kv = append(kv, k, v)
	}
	s.log.V(1).Info("audit event", kv...)
}
