// Package research serves the question and report endpoints.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/research"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Archiver stores rendered reports. *archive.S3Archive satisfies it.
type Archiver interface {
	Key(subject, timeRange, ext string) string
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type Options struct {
	Router  research.Router
	Reports *research.ReportAssembler
	// Archive is optional; reports are archived only when it is set.
	Archive  Archiver
	Subject  string
	Quarters []string
}

type Handler struct {
	opts Options
}

func NewHandler(opts Options) *Handler {
	if opts.Subject == "" {
		opts.Subject = research.DefaultSubject
	}
	return &Handler{opts: opts}
}

type TimeRangeBody struct {
	StartQuarter string `json:"start_quarter"`
	EndQuarter   string `json:"end_quarter"`
}

type QueryRequest struct {
	Query     string        `json:"query"`
	Agents    []string      `json:"agents"`
	TimeRange TimeRangeBody `json:"time_range"`
}

type AgentResponse struct {
	AgentType  string         `json:"agent_type"`
	Content    string         `json:"content"`
	Data       map[string]any `json:"data,omitempty"`
	Failed     bool           `json:"failed,omitempty"`
	Error      string         `json:"error,omitempty"`
	Empty      bool           `json:"empty,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

type QueryResponse struct {
	RequestID        string                   `json:"request_id"`
	Query            string                   `json:"query"`
	TimeRange        TimeRangeBody            `json:"time_range"`
	AgentResponses   map[string]AgentResponse `json:"agent_responses"`
	CombinedResponse string                   `json:"combined_response"`
	Error            string                   `json:"error,omitempty"`
}

type ReportRequest struct {
	TimeRange TimeRangeBody `json:"time_range"`
}

type ReportResponse struct {
	HistoricalPerformance string            `json:"historical_performance"`
	FinancialMetrics      string            `json:"financial_metrics"`
	RealTimeInsights      string            `json:"real_time_insights"`
	Charts                map[string]string `json:"charts,omitempty"`
	ArchiveKey            string            `json:"archive_key,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s Research Assistant API is running", h.opts.Subject),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) AvailableQuarters(w http.ResponseWriter, r *http.Request) {
	quarters := h.opts.Quarters
	if quarters == nil {
		quarters = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"quarters": quarters})
}

func (h *Handler) AgentQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	kinds, err := research.ParseProviderKinds(req.Agents)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tr, err := parseTimeRange(req.TimeRange)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.opts.Router.Route(r.Context(), research.AgentRequest{
		Query:     req.Query,
		Providers: kinds,
		TimeRange: tr,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := QueryResponse{
		RequestID:        state.RequestID,
		Query:            state.Query,
		TimeRange:        rangeBody(state.TimeRange),
		AgentResponses:   make(map[string]AgentResponse, len(state.Results)),
		CombinedResponse: state.Synthesis,
		Error:            state.LastError,
	}
	for _, res := range state.Results {
		resp.AgentResponses[string(res.Provider)] = AgentResponse{
			AgentType:  string(res.Provider),
			Content:    res.Content,
			Data:       res.StructuredData,
			Failed:     res.Failed,
			Error:      res.ErrorMessage,
			Empty:      res.Empty,
			DurationMS: res.Duration.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	if h.opts.Reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report generation is not configured")
		return
	}

	var req ReportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tr, err := parseTimeRange(req.TimeRange)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.opts.Reports.Build(r.Context(), tr)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		page, err := report.HTML()
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if key := h.archive(r.Context(), report, []byte(page), "html", "text/html; charset=utf-8"); key != "" {
			w.Header().Set("X-Archive-Key", key)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(page))
		return
	}

	writeJSON(w, http.StatusOK, ReportResponse{
		HistoricalPerformance: report.HistoricalSection,
		FinancialMetrics:      report.MetricsSection,
		RealTimeInsights:      report.RealtimeSection,
		Charts:                report.Charts,
		ArchiveKey:            h.archive(r.Context(), report, []byte(report.Markdown()), "md", "text/markdown; charset=utf-8"),
	})
}

// archive uploads the rendered report when an archive is configured. Upload
// failures are logged and do not fail the request.
func (h *Handler) archive(ctx context.Context, report *research.ReportResult, body []byte, ext, contentType string) string {
	if h.opts.Archive == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	key := h.opts.Archive.Key(report.Subject, report.TimeRange.String(), ext)
	if _, err := h.opts.Archive.Put(ctx, key, body, contentType); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("report archival failed")
		return ""
	}
	return key
}

// decodeBody reads at most maxBodyBytes of JSON into v and writes the error
// response itself when it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, research.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseTimeRange parses the wire tokens. Blank tokens are left zero so the
// orchestrator rejects them along with other invalid requests.
func parseTimeRange(body TimeRangeBody) (period.TimeRange, error) {
	var tr period.TimeRange
	var err error
	if strings.TrimSpace(body.StartQuarter) != "" {
		if tr.Start, err = period.Parse(body.StartQuarter); err != nil {
			return tr, fmt.Errorf("%w: start_quarter: %v", research.ErrInvalidRequest, err)
		}
	}
	if strings.TrimSpace(body.EndQuarter) != "" {
		if tr.End, err = period.Parse(body.EndQuarter); err != nil {
			return tr, fmt.Errorf("%w: end_quarter: %v", research.ErrInvalidRequest, err)
		}
	}
	return tr, nil
}

func rangeBody(tr period.TimeRange) TimeRangeBody {
	return TimeRangeBody{StartQuarter: tr.Start.String(), EndQuarter: tr.End.String()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
