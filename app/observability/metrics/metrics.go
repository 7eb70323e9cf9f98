package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginAttemptsTotal     metric.Int64Counter
	RecoveryStepsTotal     metric.Int64Counter
	PermissionChecksTotal  metric.Int64Counter
	AuditEventsTotal       metric.Int64Counter
	AuditEventsDropped     metric.Int64Counter
	PasswordHashDuration   metric.Float64Histogram
	DbQueryDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments from the global MeterProvider.
// Call it after the provider is installed; later calls are no-ops.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("logistics-backoffice")
		var err error
		m := &AppMetrics{}

		m.LoginAttemptsTotal, err = meter.Int64Counter(
			"auth_login_attempts_total",
			metric.WithDescription("Login attempts by outcome"),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_login_attempts_total: %v", err)
		}

		m.RecoveryStepsTotal, err = meter.Int64Counter(
			"auth_recovery_steps_total",
			metric.WithDescription("Password recovery steps by step and outcome"),
			metric.WithUnit("{step}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_recovery_steps_total: %v", err)
		}

		m.PermissionChecksTotal, err = meter.Int64Counter(
			"rbac_permission_checks_total",
			metric.WithDescription("Permission checks by resource, action and decision"),
			metric.WithUnit("{check}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create rbac_permission_checks_total: %v", err)
		}

		m.AuditEventsTotal, err = meter.Int64Counter(
			"audit_events_total",
			metric.WithDescription("Audit events delivered to the sink"),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create audit_events_total: %v", err)
		}

		m.AuditEventsDropped, err = meter.Int64Counter(
			"audit_events_dropped_total",
			metric.WithDescription("Audit events dropped because the buffer was full or the sink failed"),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create audit_events_dropped_total: %v", err)
		}

		m.PasswordHashDuration, err = meter.Float64Histogram(
			"auth_password_hash_duration_seconds",
			metric.WithDescription("Duration of password hash computations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create auth_password_hash_duration_seconds: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, initializing them against the current global
// provider (a no-op provider in tests) if startup has not done so.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

func (m *AppMetrics) RecordLogin(ctx context.Context, outcome string) {
	m.LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) RecordRecovery(ctx context.Context, step, outcome string) {
	m.RecoveryStepsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("outcome", outcome),
	))
}

func (m *AppMetrics) RecordPermissionCheck(ctx context.Context, resource, action string, allowed bool) {
	m.PermissionChecksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("action", action),
		attribute.Bool("allowed", allowed),
	))
}

// RecordPasswordHash observes one bcrypt computation; op is "hash" or "verify".
func (m *AppMetrics) RecordPasswordHash(ctx context.Context, op string, elapsed time.Duration) {
	m.PasswordHashDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("op", op)))
}

func (m *AppMetrics) RecordDBQuery(ctx context.Context, operation string, elapsed time.Duration, failed bool) {
	m.DbQueryDurationSeconds.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("error", failed),
	))
}
