package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"research_assistant/pkg/core/period"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// NoResponsesMessage is the synthesis used when no provider ran.
const NoResponsesMessage = "No responses from any agents."

const (
	DefaultProviderTimeout  = 60 * time.Second
	DefaultSynthesisTimeout = 60 * time.Second
)

// Combiner merges provider results into one answer. On failure it still
// returns a usable fallback text alongside the error.
type Combiner interface {
	Combine(ctx context.Context, query string, results []AgentResult) (string, error)
}

type Options struct {
	ProviderTimeout  time.Duration
	SynthesisTimeout time.Duration
	// Parallel runs the selected providers concurrently before the state
	// machine consumes their results in canonical order.
	Parallel bool
}

// Orchestrator routes requests through the evidence providers. It holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	providers map[ProviderKind]EvidenceProvider
	combiner  Combiner
	opts      Options
}

func NewOrchestrator(providers map[ProviderKind]EvidenceProvider, combiner Combiner, opts Options) *Orchestrator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.SynthesisTimeout <= 0 {
		opts.SynthesisTimeout = DefaultSynthesisTimeout
	}
	registered := make(map[ProviderKind]EvidenceProvider, len(providers))
	for k, p := range providers {
		if p != nil {
			registered[k] = p
		}
	}
	return &Orchestrator{providers: registered, combiner: combiner, opts: opts}
}

type stage int

const (
	stageStart stage = iota
	stageDocument
	stageMetrics
	stageWeb
	stageCombine
	stageTerminal
)

var stageNames = [...]string{"start", "document", "metrics", "web", "combine", "terminal"}

func (s stage) String() string { return stageNames[s] }

func stageFor(kind ProviderKind) stage {
	switch kind {
	case Document:
		return stageDocument
	case Metrics:
		return stageMetrics
	default:
		return stageWeb
	}
}

func (s stage) kind() ProviderKind {
	switch s {
	case stageDocument:
		return Document
	case stageMetrics:
		return Metrics
	default:
		return Web
	}
}

// transition picks the next stage. Providers already present in the results,
// failed ones included, are never scheduled again.
func transition(current stage, state *OrchestrationState) stage {
	if current == stageCombine || current == stageTerminal {
		return stageTerminal
	}
	for _, kind := range state.Providers {
		if !state.has(kind) {
			return stageFor(kind)
		}
	}
	return stageCombine
}

// Route runs one request to completion. The only error it returns wraps
// ErrInvalidRequest; provider and synthesis failures are recorded in the
// returned state.
func (o *Orchestrator) Route(ctx context.Context, req AgentRequest) (*OrchestrationState, error) {
	state, err := newState(req)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("request_id", state.RequestID).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().
		Str("time_range", state.TimeRange.String()).
		Interface("providers", state.Providers).
		Msg("routing request")

	var prefetched map[ProviderKind]AgentResult
	if o.opts.Parallel && len(state.Providers) > 1 {
		prefetched = o.prefetch(ctx, state)
	}

	for current := transition(stageStart, state); current != stageTerminal; current = transition(current, state) {
		logger.Debug().Stringer("stage", current).Msg("transition")

		if current == stageCombine {
			o.combine(ctx, state)
			continue
		}

		kind := current.kind()
		result, ok := prefetched[kind]
		if !ok {
			result = o.invoke(ctx, kind, state.Query, state.TimeRange)
		}
		state.Results = append(state.Results, result)
	}

	logger.Info().
		Int("results", len(state.Results)).
		Bool("synthesis_failed", state.LastError != "").
		Msg("request complete")
	return state, nil
}

func newState(req AgentRequest) (*OrchestrationState, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}
	if err := req.TimeRange.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	selected := map[ProviderKind]bool{}
	for _, k := range req.Providers {
		if !k.valid() {
			return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidRequest, k)
		}
		if k == All {
			for _, c := range CanonicalOrder {
				selected[c] = true
			}
			continue
		}
		selected[k] = true
	}

	expanded := make([]ProviderKind, 0, len(CanonicalOrder))
	for _, k := range CanonicalOrder {
		if selected[k] {
			expanded = append(expanded, k)
		}
	}

	return &OrchestrationState{
		RequestID: uuid.NewString(),
		Query:     query,
		Providers: expanded,
		TimeRange: req.TimeRange,
		Results:   make([]AgentResult, 0, len(expanded)),
	}, nil
}

func (o *Orchestrator) prefetch(ctx context.Context, state *OrchestrationState) map[ProviderKind]AgentResult {
	results := make([]AgentResult, len(state.Providers))
	var g errgroup.Group
	for i, kind := range state.Providers {
		g.Go(func() error {
			results[i] = o.invoke(ctx, kind, state.Query, state.TimeRange)
			return nil
		})
	}
	_ = g.Wait()

	byKind := make(map[ProviderKind]AgentResult, len(results))
	for _, r := range results {
		byKind[r.Provider] = r
	}
	return byKind
}

type outcome struct {
	result *AgentResult
	err    error
}

// invoke runs one provider and always yields a result. Errors, panics,
// timeouts, nil results and empty content become failed results.
func (o *Orchestrator) invoke(ctx context.Context, kind ProviderKind, query string, tr period.TimeRange) AgentResult {
	logger := zerolog.Ctx(ctx).With().Str("provider", string(kind)).Logger()
	started := time.Now()

	provider, ok := o.providers[kind]
	if !ok {
		logger.Warn().Msg("provider not configured")
		return failedResult(kind, "provider not configured", time.Since(started))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		res, err := provider.Answer(callCtx, query, tr)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		out.err = callCtx.Err()
	}
	if out.err != nil && callCtx.Err() != nil {
		out.err = interrupted(ctx, callCtx, o.opts.ProviderTimeout)
	}
	elapsed := time.Since(started)

	var result AgentResult
	switch {
	case out.err != nil:
		result = failedResult(kind, out.err.Error(), elapsed)
	case out.result == nil:
		result = failedResult(kind, "provider returned no result", elapsed)
	case out.result.Failed:
		result = *out.result
		if result.ErrorMessage == "" {
			result.ErrorMessage = "provider reported a failure"
		}
	case strings.TrimSpace(out.result.Content) == "":
		result = failedResult(kind, "provider returned empty content", elapsed)
	default:
		result = *out.result
	}
	result.Provider = kind
	result.Duration = elapsed

	if result.Failed {
		logger.Warn().Dur("elapsed", elapsed).Str("error", result.ErrorMessage).Msg("provider failed")
	} else {
		logger.Info().Dur("elapsed", elapsed).Bool("empty", result.Empty).Msg("provider finished")
	}
	return result
}

func failedResult(kind ProviderKind, msg string, elapsed time.Duration) AgentResult {
	return AgentResult{Provider: kind, Failed: true, ErrorMessage: msg, Duration: elapsed}
}

func (o *Orchestrator) combine(ctx context.Context, state *OrchestrationState) {
	logger := zerolog.Ctx(ctx)
	if len(state.Results) == 0 {
		state.Synthesis = NoResponsesMessage
		return
	}
	if o.combiner == nil {
		state.Synthesis = FallbackMessage
		state.LastError = "no synthesizer configured"
		return
	}

	synthCtx, cancel := context.WithTimeout(ctx, o.opts.SynthesisTimeout)
	defer cancel()

	results := append([]AgentResult(nil), state.Results...)
	done := make(chan combined, 1)
	go func() {
		text, err := o.safeCombine(synthCtx, state.Query, results)
		done <- combined{text: text, err: err}
	}()

	var out combined
	select {
	case out = <-done:
	case <-synthCtx.Done():
		out = combined{text: FallbackMessage, err: synthCtx.Err()}
	}
	if out.err != nil && synthCtx.Err() != nil {
		out.err = interrupted(ctx, synthCtx, o.opts.SynthesisTimeout)
	}

	if out.err != nil {
		state.LastError = fmt.Sprintf("error combining responses: %v", out.err)
		logger.Error().Err(out.err).Msg("synthesis failed")
	}
	if strings.TrimSpace(out.text) == "" {
		out.text = FallbackMessage
	}
	state.Synthesis = out.text
}

type combined struct {
	text string
	err  error
}

func (o *Orchestrator) safeCombine(ctx context.Context, query string, results []AgentResult) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = FallbackMessage, fmt.Errorf("synthesizer panicked: %v", r)
		}
	}()
	return o.combiner.Combine(ctx, query, results)
}

// interrupted explains why work bound to call stopped early. A parent that
// ended first is reported as such rather than as the step's own timeout.
func interrupted(parent, call context.Context, limit time.Duration) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("request ended before completion: %w", err)
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s", limit)
	}
	return call.Err()
}
