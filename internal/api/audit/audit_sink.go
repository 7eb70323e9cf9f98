package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-logistics-backoffice/app/db"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

// Sink persists audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, event types.AuditEvent) error
}

var (
	_ Sink = (*PostgresSink)(nil)
	_ Sink = (*RedisStreamSink)(nil)
	_ Sink = (*LogSink)(nil)
)

// PostgresSink appends to the audit_logs table.
type PostgresSink struct {
	pgpool database.Pool
}

func NewPostgresSink(pgpool database.Pool) *PostgresSink {
	return &PostgresSink{pgpool: pgpool}
}

func (s *PostgresSink) Write(ctx context.Context, event types.AuditEvent) error {
	details, err := encodeDetails(event.Details)
	if err != nil {
		return err
	}
	var ip *string
	if event.IPAddress != "" {
		ip = &event.IPAddress
	}

	_, err = s.pgpool.Exec(ctx, `
		INSERT INTO audit_logs (event_id, actor_id, event_type, description, ip_address, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.EventID, event.ActorID, string(event.EventType), event.Description, ip, details, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("database error inserting audit event: %w", err)
	}
	return nil
}

// RedisStreamSink appends each event to a Redis stream with XADD.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Write(ctx context.Context, event types.AuditEvent) error {
	details, err := encodeDetails(event.Details)
	if err != nil {
		return err
	}
	actor := ""
	if event.ActorID != nil {
		actor = strconv.FormatInt(*event.ActorID, 10)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"event_id":    event.EventID.String(),
			"actor_id":    actor,
			"event_type":  string(event.EventType),
			"description": event.Description,
			"ip_address":  event.IPAddress,
			"details":     string(details),
			"created_at":  event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis error appending audit event: %w", err)
	}
	return nil
}

// LogSink writes events to the structured log only.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, event types.AuditEvent) error {
	attrs := []any{
		slog.String("event_id", event.EventID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("description", event.Description),
		slog.String("ip_address", event.IPAddress),
	}
	if event.ActorID != nil {
		attrs = append(attrs, slog.Int64("actor_id", *event.ActorID))
	}
	if len(event.Details) > 0 {
		attrs = append(attrs, slog.Any("details", event.Details))
	}
	s.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}

func encodeDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("error encoding audit details: %w", err)
	}
	return b, nil
}
