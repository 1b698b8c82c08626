package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthResult_Counts(t *testing.T) {
	m := New()

	m.AuthResult("login", ResultOK)
	m.AuthResult("login", ResultOK)
	m.AuthResult("login", ResultDenied)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.auth.WithLabelValues("login", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auth.WithLabelValues("login", ResultDenied)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.auth.WithLabelValues("refresh", ResultOK)))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.AuthResult("verify", ResultError)
	m.ObserveRequest("/login", "POST", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	for _, s := range []string{
		`flashboard_auth_operations_total{op="verify",result="error"} 1`,
		`flashboard_http_request_duration_seconds_count{method="POST",route="/login",status="200"} 1`,
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(out, s), "missing %q", s)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.AuthResult("login", ResultOK)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.auth.WithLabelValues("login", ResultOK)))
}
