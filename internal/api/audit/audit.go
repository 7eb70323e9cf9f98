package audit

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-logistics-backoffice/app/db"
	"github.com/FACorreiaa/go-logistics-backoffice/config"
)

const streamMaxLen = 100_000

// NewNotifier builds the configured sink and wraps it in a sync or async
// notifier. The returned close func flushes pending events.
func NewNotifier(cfg config.AuditConfig, pgpool database.Pool, rdb *redis.Client, logger *slog.Logger) (Notifier, func(), error) {
	var sink Sink
	switch cfg.Sink {
	case "", "postgres":
		sink = NewPostgresSink(pgpool)
	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("audit sink redis requires a redis client")
		}
		sink = NewRedisStreamSink(rdb, cfg.RedisStream, streamMaxLen)
	case "log":
		sink = NewLogSink(logger)
	default:
		return nil, nil, fmt.Errorf("unknown audit sink %q", cfg.Sink)
	}

	logger.Info("Audit notifier configured", slog.String("sink", cfg.Sink), slog.Bool("async", cfg.Async))
	if cfg.Async {
		n := NewAsyncNotifier(sink, cfg.BufferSize, logger)
		return n, n.Close, nil
	}
	return NewSyncNotifier(sink, logger), func() {}, nil
}
