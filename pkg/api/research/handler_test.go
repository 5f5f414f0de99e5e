package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/research"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRouter struct {
	req   research.AgentRequest
	state *research.OrchestrationState
	err   error
}

func (f *fakeRouter) Route(_ context.Context, req research.AgentRequest) (*research.OrchestrationState, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	if err := req.TimeRange.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", research.ErrInvalidRequest, err)
	}
	state := *f.state
	state.TimeRange = req.TimeRange
	state.Query = req.Query
	return &state, nil
}

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) Key(subject, timeRange, ext string) string {
	return subject + "/" + timeRange + "." + ext
}

func (f *fakeArchive) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "s3://bucket/" + key, nil
}

func sampleState() *research.OrchestrationState {
	return &research.OrchestrationState{
		RequestID: "req-1",
		Results: []research.AgentResult{
			{Provider: research.Document, Content: "Revenue grew.", Duration: 1500 * time.Millisecond},
			{
				Provider:       research.Metrics,
				Content:        "Market cap rose.",
				StructuredData: map[string]any{"charts": map[string]string{"pe_ratios": "PHN2Zz4="}, "metrics_count": 4},
			},
			{Provider: research.Web, Failed: true, ErrorMessage: "timed out after 1m0s"},
		},
		Synthesis: "Combined answer.",
	}
}

func post(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rec
}

func TestAgentQuery(t *testing.T) {
	router := &fakeRouter{state: sampleState()}
	h := NewHandler(Options{Router: router})

	rec := post(t, h.AgentQuery, "/api/agent-query",
		`{"query":"How did revenue change?","agents":["rag","snowflake","web_search"],"time_range":{"start_quarter":"2023q1","end_quarter":"2023q4"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []research.ProviderKind{research.Document, research.Metrics, research.Web}, router.req.Providers)
	assert.Equal(t, period.MustParse("2023q1"), router.req.TimeRange.Start)

	var resp QueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "Combined answer.", resp.CombinedResponse)
	assert.Equal(t, TimeRangeBody{StartQuarter: "2023q1", EndQuarter: "2023q4"}, resp.TimeRange)
	require.Len(t, resp.AgentResponses, 3)
	assert.Equal(t, "Revenue grew.", resp.AgentResponses["document"].Content)
	assert.EqualValues(t, 1500, resp.AgentResponses["document"].DurationMS)
	assert.Contains(t, resp.AgentResponses["metrics"].Data, "charts")
	assert.True(t, resp.AgentResponses["web"].Failed)
	assert.Equal(t, "timed out after 1m0s", resp.AgentResponses["web"].Error)
	assert.Empty(t, resp.Error)
}

func TestAgentQuery_BadRequests(t *testing.T) {
	h := NewHandler(Options{Router: &fakeRouter{state: sampleState()}})

	cases := map[string]string{
		"malformed json": `{"query":`,
		"unknown agent":  `{"query":"q","agents":["oracle"],"time_range":{"start_quarter":"2023q1","end_quarter":"2023q2"}}`,
		"bad quarter":    `{"query":"q","agents":["web"],"time_range":{"start_quarter":"2023q5","end_quarter":"2023q2"}}`,
		"inverted range": `{"query":"q","agents":["web"],"time_range":{"start_quarter":"2024q1","end_quarter":"2023q2"}}`,
		"missing range":  `{"query":"q","agents":["web"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := post(t, h.AgentQuery, "/api/agent-query", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandlers_RejectOversizedBody(t *testing.T) {
	router := &fakeRouter{state: sampleState()}
	h := NewHandler(Options{Router: router, Reports: research.NewReportAssembler(router, "")})
	body := `{"query":"` + strings.Repeat("a", maxBodyBytes) + `","agents":["web"],"time_range":{"start_quarter":"2023q1","end_quarter":"2023q2"}}`

	for target, handler := range map[string]http.HandlerFunc{
		"/api/agent-query":     h.AgentQuery,
		"/api/generate-report": h.GenerateReport,
	} {
		rec := post(t, handler, target, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "request body exceeds 1048576 bytes", target)
	}
	assert.Empty(t, router.req.Query)
}

func TestAgentQuery_InternalError(t *testing.T) {
	h := NewHandler(Options{Router: &fakeRouter{err: errors.New("boom")}})
	rec := post(t, h.AgentQuery, "/api/agent-query",
		`{"query":"q","agents":["all"],"time_range":{"start_quarter":"2023q1","end_quarter":"2023q2"}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestGenerateReport(t *testing.T) {
	router := &fakeRouter{state: sampleState()}
	archive := &fakeArchive{}
	h := NewHandler(Options{
		Router:  router,
		Reports: research.NewReportAssembler(router, "NVIDIA"),
		Archive: archive,
	})

	body := `{"time_range":{"start_quarter":"2023q1","end_quarter":"2023q4"}}`
	rec := post(t, h.GenerateReport, "/api/generate-report", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Revenue grew.", resp.HistoricalPerformance)
	assert.Equal(t, "Market cap rose.", resp.FinancialMetrics)
	assert.Equal(t, research.NoRealtimeData, resp.RealTimeInsights)
	assert.Equal(t, map[string]string{"pe_ratios": "PHN2Zz4="}, resp.Charts)
	assert.Equal(t, "NVIDIA/2023q1..2023q4.md", resp.ArchiveKey)
	assert.Equal(t, []research.ProviderKind{research.All}, router.req.Providers)

	rec = post(t, h.GenerateReport, "/api/generate-report?format=html", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "NVIDIA/2023q1..2023q4.html", rec.Header().Get("X-Archive-Key"))
	assert.Contains(t, rec.Body.String(), "<h2>Financial Metrics</h2>")
	assert.Len(t, archive.keys, 2)
}

func TestGenerateReport_ArchiveFailureIsNotFatal(t *testing.T) {
	router := &fakeRouter{state: sampleState()}
	h := NewHandler(Options{
		Router:  router,
		Reports: research.NewReportAssembler(router, "NVIDIA"),
		Archive: &fakeArchive{err: errors.New("access denied")},
	})

	rec := post(t, h.GenerateReport, "/api/generate-report", `{"time_range":{"start_quarter":"2023q1","end_quarter":"2023q4"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.ArchiveKey)
	assert.Equal(t, "Revenue grew.", resp.HistoricalPerformance)
}

func TestGenerateReport_InvalidRange(t *testing.T) {
	router := &fakeRouter{state: sampleState()}
	h := NewHandler(Options{Router: router, Reports: research.NewReportAssembler(router, "")})

	rec := post(t, h.GenerateReport, "/api/generate-report", `{"time_range":{"start_quarter":"2024q2","end_quarter":"2024q1"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRootAndQuarters(t *testing.T) {
	h := NewHandler(Options{Subject: "NVIDIA", Quarters: period.Span(2020, 2021)})

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"message":"NVIDIA Research Assistant API is running"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.AvailableQuarters(rec, httptest.NewRequest(http.MethodGet, "/api/available-quarters", nil))
	var resp map[string][]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["quarters"], 8)
	assert.Equal(t, "2020q1", resp["quarters"][0])
	assert.Equal(t, "2021q4", resp["quarters"][7])
}
