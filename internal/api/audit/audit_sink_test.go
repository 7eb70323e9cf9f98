package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvent() types.AuditEvent {
	actor := int64(7)
	return types.AuditEvent{
		EventID:     uuid.MustParse("6f1c1f5e-4d2b-4c39-9a51-3e3f0b7f6c11"),
		ActorID:     &actor,
		EventType:   types.AuditPasswordReset,
		Description: "Password reset via security questions",
		IPAddress:   "10.0.0.5",
		Details:     map[string]any{"username": "alice"},
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresSink_Write(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev := sampleEvent()
	ip := "10.0.0.5"
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(ev.EventID, ev.ActorID, "PASSWORD_RESET", ev.Description, &ip, []byte(`{"username":"alice"}`), ev.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPostgresSink(mock).Write(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_AnonymousEventStoresNulls(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev := types.AuditEvent{
		EventID:     uuid.New(),
		EventType:   types.AuditRecoveryStartFail,
		Description: "Recovery requested for unknown user",
		CreatedAt:   time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(ev.EventID, (*int64)(nil), "recovery_start_fail", ev.Description, (*string)(nil), []byte(nil), ev.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPostgresSink(mock).Write(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_WrapsDatabaseError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(dbErr)

	err = NewPostgresSink(mock).Write(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStreamSink_Write(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	sink := NewRedisStreamSink(rdb, "audit:events", 0)
	ev := sampleEvent()
	require.NoError(t, sink.Write(context.Background(), ev))

	msgs, err := rdb.XRange(context.Background(), "audit:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	v := msgs[0].Values
	assert.Equal(t, ev.EventID.String(), v["event_id"])
	assert.Equal(t, "7", v["actor_id"])
	assert.Equal(t, "PASSWORD_RESET", v["event_type"])
	assert.Equal(t, "10.0.0.5", v["ip_address"])
	assert.JSONEq(t, `{"username":"alice"}`, v["details"].(string))
	assert.Equal(t, "2025-03-01T12:00:00Z", v["created_at"])
}

func TestRedisStreamSink_ServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s.Close()

	err := NewRedisStreamSink(rdb, "audit:events", 10).Write(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestLogSink_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogSink(discardLogger()).Write(context.Background(), sampleEvent()))
}
