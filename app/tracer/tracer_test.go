package tracer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	database "github.com/FACorreiaa/go-logistics-backoffice/app/db"
	"github.com/FACorreiaa/go-logistics-backoffice/app/observability/metrics"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/security"
)

func TestInitTracingAndMetrics_ExposesAuthCounters(t *testing.T) {
	tel, err := InitTracingAndMetrics("test-service")
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	metrics.Get().RecordLogin(context.Background(), "success")

	hasher := security.NewHasher(security.HasherConfig{Cost: bcrypt.MinCost})
	digest, err := hasher.Hash("TestPass123!")
	require.NoError(t, err)
	require.True(t, hasher.Verify("TestPass123!", digest))

	var queries database.QueryMetrics
	ctx := queries.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	queries.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	rec := httptest.NewRecorder()
	tel.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "target_info")
	assert.Contains(t, body, "auth_login_attempts_total")
	assert.Contains(t, body, "auth_password_hash_duration_seconds")
	assert.Contains(t, body, `op="verify"`)
	assert.Contains(t, body, "db_query_duration_seconds")
	assert.Contains(t, body, `operation="SELECT"`)
}
