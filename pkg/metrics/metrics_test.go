package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProm_ClashCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProm(reg)
	require.NoError(t, err)

	p.ClashChecked(true)
	p.ClashChecked(false)
	p.ClashChecked(false)
	p.ClashRejected(StagePrecheck, "teacher")
	p.ClashRejected(StageStorage, "room")

	expected := `
# HELP timetable_clash_checks_total Number of clash checks by outcome
# TYPE timetable_clash_checks_total counter
timetable_clash_checks_total{outcome="clash"} 1
timetable_clash_checks_total{outcome="clear"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(p.clashChecks, strings.NewReader(expected)))

	expectedRej := `
# HELP timetable_clash_rejections_total Number of writes rejected as clashes by stage and resource
# TYPE timetable_clash_rejections_total counter
timetable_clash_rejections_total{resource="room",stage="storage"} 1
timetable_clash_rejections_total{resource="teacher",stage="precheck"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(p.clashRejections, strings.NewReader(expectedRej)))
}

func TestProm_ViolationsAndPurge(t *testing.T) {
	p, err := NewProm(prometheus.NewRegistry())
	require.NoError(t, err)

	p.ConstraintViolated("teacher")
	p.ConstraintViolated("teacher")
	p.ExceptionsPurged(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.violations.WithLabelValues("teacher")))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.exceptionsPurged))
}

func TestProm_HTTPRequest(t *testing.T) {
	p, err := NewProm(prometheus.NewRegistry())
	require.NoError(t, err)

	p.HTTPRequest("POST", "/api/v1/timetables/:id/entries", 409, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpRequests.WithLabelValues("POST", "/api/v1/timetables/:id/entries", "409")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.httpLatency))
}

func TestNewProm_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewProm(reg)
	require.NoError(t, err)
	second, err := NewProm(reg)
	require.NoError(t, err)

	first.ClashChecked(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.clashChecks.WithLabelValues("clash")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProm(reg)
	require.NoError(t, err)
	p.ConstraintViolated("room")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `timetable_constraint_violations_total{constraint_type="room"} 1`)
}
