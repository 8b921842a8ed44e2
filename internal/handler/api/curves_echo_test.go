package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCurve/internal/domain/models"
	"FinCurve/internal/repository"
	"FinCurve/internal/usecase"
	"FinCurve/pkg/cache"
	xhttp "FinCurve/pkg/http"
	xlogger "FinCurve/pkg/logger"
	"FinCurve/pkg/metrics"
	"FinCurve/pkg/queue"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	svc := cache.NewMemoryCache()
	registry := usecase.NewCurveRegistry(repository.NewCacheCurveStore(svc), m, xlogger.Nop(), 0)
	sweeper := usecase.NewSweeper(registry, nil, m, xlogger.Nop(), 1)

	q := queue.NewMemoryQueue(xlogger.Nop(), queue.Config{})
	jobs := usecase.NewSweepJobs(repository.NewCacheSweepJobStore(svc, time.Hour), q, registry, sweeper, m, xlogger.Nop())
	q.Register(jobs)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	e := echo.New()
	e.HTTPErrorHandler = xhttp.ErrorHandler
	NewCurvesEchoHandler(xlogger.Nop(), registry, sweeper, jobs, models.DefaultGrid).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

const eurBody = `{"labels":["1Y","2Y","5Y"],"zcs":["0.01",0.015,0.02],"intp":"linear_rt","short_end_flat":true}`

func TestDefineAndDescribe(t *testing.T) {
	e := newTestEcho(t)

	rec := do(e, http.MethodPut, "/api/curves/eur", eurBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var desc models.CurveDescription
	decodeData(t, rec, &desc)
	assert.Equal(t, "linear_rt", desc.Method)
	assert.True(t, desc.ShortEndFlat)
	assert.Equal(t, []float64{1, 2, 5}, desc.Times)

	rec = do(e, http.MethodGet, "/api/curves/eur", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &desc)
	assert.Equal(t, []float64{0.01, 0.015, 0.02}, desc.Zcs)

	rec = do(e, http.MethodGet, "/api/curves", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list xhttp.ListDataResponse
	decodeData(t, rec, &list)
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, []interface{}{"eur"}, list.Rows)
}

func TestDefineErrors(t *testing.T) {
	e := newTestEcho(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"no times", `{"zcs":[0.01,0.02]}`, http.StatusBadRequest, usecase.CodeMissingTimeFormat},
		{"no values", `{"times":[1,2]}`, http.StatusBadRequest, usecase.CodeMissingValueFormat},
		{"method", `{"times":[1,2],"zcs":[0.01,0.02],"intp":"cubic"}`, http.StatusBadRequest, usecase.CodeUnknownMethod},
		{"lengths", `{"times":[1,2,3],"zcs":[0.01,0.02]}`, http.StatusBadRequest, usecase.CodeLengthMismatch},
		{"dates", `{"dates":["2024-01-01","2025-01-01"],"zcs":[0.01,0.02]}`, http.StatusBadRequest, usecase.CodeMissingValuationDate},
		{"unsorted", `{"times":[2,1],"zcs":[0.01,0.02]}`, http.StatusBadRequest, usecase.CodeUnsortedTimes},
		{"pillar", `{"labels":["1Q","2Y"],"zcs":[0.01,0.02]}`, http.StatusBadRequest, usecase.CodeInvalidPillar},
		{"df", `{"times":[1,2],"dfs":[0.99,-0.5]}`, http.StatusUnprocessableEntity, usecase.CodeInvalidDiscountFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPut, "/api/curves/x", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}

	rec := do(e, http.MethodGet, "/api/curves", "")
	var list xhttp.ListDataResponse
	decodeData(t, rec, &list)
	assert.EqualValues(t, 0, list.Total)
}

func TestDefineWithoutBody(t *testing.T) {
	e := newTestEcho(t)
	rec := do(e, http.MethodPut, "/api/curves/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_REQUIRED"`)
}

func TestQueries(t *testing.T) {
	e := newTestEcho(t)
	require.Equal(t, http.StatusOK, do(e, http.MethodPut, "/api/curves/eur", eurBody).Code)

	rec := do(e, http.MethodGet, "/api/curves/eur/rate?t=0.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.PointResponse
	decodeData(t, rec, &p)
	assert.Equal(t, 0.01, p.Value)

	rec = do(e, http.MethodGet, "/api/curves/eur/df?t=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &p)
	assert.InDelta(t, 1/(1.015*1.015), p.Value, 1e-12)

	rec = do(e, http.MethodGet, "/api/curves/eur/forward?from=1&to=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var f models.ForwardResponse
	decodeData(t, rec, &f)
	assert.InDelta(t, 1.015*1.015/1.01-1, f.Rate, 1e-12)

	rec = do(e, http.MethodGet, "/api/curves/eur/rate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"t"`)

	rec = do(e, http.MethodGet, "/api/curves/eur/forward?from=abc&to=2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/curves/usd/rate?t=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_NOT_FOUND"`)
}

func TestSweepEndpoint(t *testing.T) {
	e := newTestEcho(t)
	require.Equal(t, http.StatusOK, do(e, http.MethodPut, "/api/curves/eur", eurBody).Code)

	rec := do(e, http.MethodGet, "/api/curves/eur/sweep", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.SweepResult
	decodeData(t, rec, &res)
	assert.Len(t, res.Times, 110)
	assert.Equal(t, models.DefaultGrid, res.Grid)

	rec = do(e, http.MethodGet, "/api/curves/eur/sweep?from=1&to=2&step=0.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &res)
	assert.Equal(t, []float64{1, 1.5, 2}, res.Times)

	for _, q := range []string{
		"from=2&to=1",
		"from=100000000000000000&to=100000000000100000&step=1",
	} {
		rec = do(e, http.MethodGet, "/api/curves/eur/sweep?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, rec.Body.String(), `"code":"`+usecase.CodeInvalidGrid+`"`, q)
	}
}

func TestRemove(t *testing.T) {
	e := newTestEcho(t)
	require.Equal(t, http.StatusOK, do(e, http.MethodPut, "/api/curves/eur", eurBody).Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/api/curves/eur", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/curves/eur", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/curves/eur", "").Code)
}

func TestSweepJobEndpoints(t *testing.T) {
	e := newTestEcho(t)
	require.Equal(t, http.StatusOK, do(e, http.MethodPut, "/api/curves/eur", eurBody).Code)

	rec := do(e, http.MethodPost, "/api/sweeps", `{"names":["eur","gbp"],"from":1,"to":2,"step":0.5}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var job models.SweepJob
	decodeData(t, rec, &job)
	assert.Equal(t, models.SweepJobQueued, job.Status)
	assert.Equal(t, models.Grid{From: 1, To: 2, Step: 0.5}, job.Grid)

	require.Eventually(t, func() bool {
		rec := do(e, http.MethodGet, "/api/sweeps/"+job.ID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		decodeData(t, rec, &job)
		return job.Status == models.SweepJobDone
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, job.Results, 1)
	assert.Equal(t, []float64{1, 1.5, 2}, job.Results[0].Times)
	require.Len(t, job.Failures, 1)
	assert.Equal(t, "gbp", job.Failures[0].Curve)
}

func TestSweepJobEndpointErrors(t *testing.T) {
	e := newTestEcho(t)

	rec := do(e, http.MethodPost, "/api/sweeps", `{"names":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/sweeps", `{"names":["eur"],"step":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"`+usecase.CodeInvalidGrid+`"`)

	rec = do(e, http.MethodGet, "/api/sweeps/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/sweeps/0b7f6f2e-5a43-4c1e-9d59-0d5f4b8b8f11", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
