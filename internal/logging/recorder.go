package logging

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/sst/templateassist/internal/pubsub"
)

const (
	DefaultRecorderSize = 256

	EventLogCreated pubsub.EventType = "log_created"
)

// Log is a decoded log record.
type Log struct {
	Timestamp  time.Time         `json:"timestamp"`
	Level      string            `json:"level"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Recorder is an io.Writer that decodes logfmt records, as written by the
// slog text handler, and keeps the last few of them.
type Recorder struct {
	mu      sync.Mutex
	size    int
	entries []Log
	broker  *pubsub.Broker[Log]
}

var _ pubsub.Subscriber[Log] = (*Recorder)(nil)

func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{
		size:   size,
		broker: pubsub.NewBroker[Log](),
	}
}

func (r *Recorder) Write(p []byte) (int, error) {
	d := logfmt.NewDecoder(bytes.NewReader(p))
	for d.ScanRecord() {
		msg := Log{}
		for d.ScanKeyval() {
			switch string(d.Key()) {
			case "time":
				parsed, err := time.Parse(time.RFC3339Nano, string(d.Value()))
				if err != nil {
					parsed = time.Now()
				}
				msg.Timestamp = parsed
			case "level":
				msg.Level = strings.ToLower(string(d.Value()))
			case "msg":
				msg.Message = string(d.Value())
			default:
				if msg.Attributes == nil {
					msg.Attributes = make(map[string]string)
				}
				msg.Attributes[string(d.Key())] = string(d.Value())
			}
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		r.add(msg)
	}
	if d.Err() != nil {
		return 0, d.Err()
	}
	return len(p), nil
}

func (r *Recorder) add(msg Log) {
	r.mu.Lock()
	r.entries = append(r.entries, msg)
	if over := len(r.entries) - r.size; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
	r.mu.Unlock()
	r.broker.Publish(EventLogCreated, msg)
}

// Recent returns up to limit of the newest records, oldest first. A limit
// of zero or less returns all of them.
func (r *Recorder) Recent(limit int) []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]Log, len(entries))
	copy(out, entries)
	return out
}

func (r *Recorder) Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return r.broker.Subscribe(ctx)
}

func (r *Recorder) Shutdown() {
	r.broker.Shutdown()
}
