package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestRequestID_Generates(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	require.NotEmpty(t, seen)
	assert.Regexp(t, uuidPattern, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_PropagatesCallerID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied", seen)
	assert.Equal(t, "caller-supplied", rec.Header().Get(RequestIDHeader))
}

type observation struct {
	method   string
	route    string
	status   int
	duration time.Duration
}

type fakeObserver struct{ observations []observation }

func (f *fakeObserver) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	f.observations = append(f.observations, observation{method, route, status, duration})
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/listings/:id/valuation", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/listings/abc/valuation", nil))

	require.Len(t, obs.observations, 1)
	got := obs.observations[0]
	assert.Equal(t, "GET", got.method)
	assert.Equal(t, "/listings/:id/valuation", got.route)
	assert.Equal(t, http.StatusOK, got.status)
}

// Unmatched paths collapse into one label so probes and scans cannot blow up
// the cardinality.
func TestMetrics_UnmatchedRoute(t *testing.T) {
	obs := &fakeObserver{}
	r := gin.New()
	r.Use(Metrics(obs))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/no/such/path", nil))

	require.Len(t, obs.observations, 1)
	assert.Equal(t, "unmatched", obs.observations[0].route)
	assert.Equal(t, http.StatusNotFound, obs.observations[0].status)
}

func TestRequestLogging_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogging(logging.NewNopLogger(), DefaultLoggingConfig()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/x", "/healthz", "/fail"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.NotEqual(t, 0, rec.Code)
	}
}
