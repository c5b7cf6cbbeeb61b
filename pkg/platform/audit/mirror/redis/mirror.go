// Package redis mirrors audit entries to a Redis Stream.
//
// The stream is written with XADD only and never trimmed by this package, so it
// is an independent append-only copy of the trail.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	id "ranchdesk/pkg/domain"
	audit "ranchdesk/pkg/platform/audit"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "ranchdesk:audit"

// Mirror implements audit.Mirror.
type Mirror struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
}

type Option func(*Mirror)

func WithStream(stream string) Option {
	return func(m *Mirror) {
		if stream != "" {
			m.stream = stream
		}
	}
}

// WithTimeout bounds each XADD so a slow Redis cannot stall the caller.
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func New(client *redis.Client, opts ...Option) *Mirror {
	m := &Mirror{client: client, stream: DefaultStream, timeout: time.Second}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mirror) Name() string { return "redis" }

func (m *Mirror) Append(ctx context.Context, entry audit.Entry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		Values: map[string]any{
			"id":          entry.ID.String(),
			"seq":         strconv.FormatInt(entry.Seq, 10),
			"entity_type": string(entry.EntityType),
			"entity_id":   entry.EntityID,
			"action":      string(entry.Action),
			"timestamp":   entry.Timestamp.UTC().Format(time.RFC3339Nano),
			"metadata":    string(metadata),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd audit entry: %w", err)
	}
	return nil
}

// ReadAll returns every entry currently in the stream, oldest first.
func (m *Mirror) ReadAll(ctx context.Context) ([]audit.Entry, error) {
	msgs, err := m.client.XRange(ctx, m.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("xrange audit stream: %w", err)
	}
	entries := make([]audit.Entry, 0, len(msgs))
	for _, msg := range msgs {
		entry, err := decode(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("decode stream message %s: %w", msg.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decode(values map[string]any) (audit.Entry, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	var entry audit.Entry
	seq, err := strconv.ParseInt(str("seq"), 10, 64)
	if err != nil {
		return entry, fmt.Errorf("parse seq: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, str("timestamp"))
	if err != nil {
		return entry, fmt.Errorf("parse timestamp: %w", err)
	}
	entryID, err := id.ParseAuditEntryID(str("id"))
	if err != nil {
		return entry, fmt.Errorf("parse id: %w", err)
	}
	entry.ID = entryID
	entry.Seq = seq
	entry.Timestamp = ts
	entry.EntityType = audit.EntityType(str("entity_type"))
	entry.EntityID = str("entity_id")
	entry.Action = audit.Action(str("action"))
	entry.Metadata = map[string]string{}
	if raw := str("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.Metadata); err != nil {
			return entry, fmt.Errorf("parse metadata: %w", err)
		}
	}
	return entry, nil
}
