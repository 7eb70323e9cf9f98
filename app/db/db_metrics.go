package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/go-logistics-backoffice/app/observability/metrics"
)

type queryStartKey struct{}

// QueryMetrics is a pgx.QueryTracer feeding db_query_duration_seconds.
type QueryMetrics struct{}

var _ pgx.QueryTracer = QueryMetrics{}

func (QueryMetrics) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (QueryMetrics) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	metrics.Get().RecordDBQuery(ctx, queryOperation(data.CommandTag.String()), time.Since(start), data.Err != nil)
}

// queryOperation takes the verb from a command tag ("INSERT 0 1" -> INSERT).
func queryOperation(tag string) string {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
