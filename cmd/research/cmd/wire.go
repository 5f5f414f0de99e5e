package cmd

import (
	"context"
	"fmt"

	researchapi "research_assistant/pkg/api/research"
	"research_assistant/pkg/core/agent"
	"research_assistant/pkg/core/archive"
	"research_assistant/pkg/core/charts"
	"research_assistant/pkg/core/config"
	"research_assistant/pkg/core/docindex"
	"research_assistant/pkg/core/evidence"
	"research_assistant/pkg/core/metricstore"
	"research_assistant/pkg/core/prompt"
	"research_assistant/pkg/core/research"
	"research_assistant/pkg/core/store"
	"research_assistant/pkg/core/websearch"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// app holds the long-lived collaborators built from the settings.
type app struct {
	agents       *agent.Manager
	prompts      *prompt.Registry
	orchestrator *research.Orchestrator
	reports      *research.ReportAssembler
	archive      researchapi.Archiver
	closers      []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, s config.Settings) (*app, error) {
	log := zerolog.Ctx(ctx)
	a := &app{}

	agentCfg, err := agent.LoadConfig(s.ModelsConfig)
	if err != nil {
		return nil, err
	}
	a.agents = agent.NewManager(agentCfg)

	a.prompts = prompt.NewRegistry()
	if err := prompt.LoadDefaults(a.prompts); err != nil {
		return nil, fmt.Errorf("loading default prompts: %w", err)
	}
	if s.PromptsDir != "" {
		if err := prompt.LoadFromDirectory(ctx, a.prompts, s.PromptsDir); err != nil {
			log.Warn().Err(err).Str("dir", s.PromptsDir).Msg("prompt overrides not loaded")
		}
	}

	var pool *pgxpool.Pool
	if s.Database.URL != "" {
		if pool, err = store.Connect(ctx, s.Database.URL); err != nil {
			log.Warn().Err(err).Msg("database unavailable")
			pool = nil
		} else {
			a.closers = append(a.closers, pool.Close)
		}
	}

	providers := map[research.ProviderKind]research.EvidenceProvider{}

	if p, err := a.documentProvider(ctx, s, pool); err != nil {
		log.Warn().Err(err).Msg("document agent disabled")
	} else if p != nil {
		providers[research.Document] = p
	}

	if p, err := a.metricsProvider(s, pool); err != nil {
		log.Warn().Err(err).Msg("metrics agent disabled")
	} else if p != nil {
		providers[research.Metrics] = p
	}

	if searcher := newSearcher(s.Search); searcher != nil {
		providers[research.Web] = evidence.NewWebProvider(searcher, a.agents.ForRole(agent.RoleWeb), a.prompts, s.Subject)
	}

	for _, kind := range research.CanonicalOrder {
		if _, ok := providers[kind]; !ok {
			log.Warn().Str("provider", string(kind)).Msg("provider not configured")
		}
	}

	synth := research.NewSynthesizer(a.agents.ForRole(agent.RoleSynthesizer), a.prompts, s.Subject)
	a.orchestrator = research.NewOrchestrator(providers, synth, research.Options{
		ProviderTimeout:  s.Orchestrator.ProviderTimeout,
		SynthesisTimeout: s.Orchestrator.SynthesisTimeout,
		Parallel:         s.Orchestrator.Parallel,
	})
	a.reports = research.NewReportAssembler(a.orchestrator, s.Subject)

	if arc, err := newArchive(ctx, s.Archive); err != nil {
		log.Warn().Err(err).Msg("report archive disabled")
	} else if arc != nil {
		a.archive = arc
	}

	return a, nil
}

func (a *app) documentProvider(ctx context.Context, s config.Settings, pool *pgxpool.Pool) (research.EvidenceProvider, error) {
	gen := a.agents.ForRole(agent.RoleDocument)
	if pool == nil {
		if s.DocIndex.LocalDir == "" {
			return nil, nil
		}
		idx := docindex.NewMemoryIndex()
		n, err := idx.LoadDirectory(s.DocIndex.LocalDir)
		if err != nil {
			return nil, err
		}
		zerolog.Ctx(ctx).Info().Int("passages", n).Str("dir", s.DocIndex.LocalDir).Msg("local report index loaded")
		return evidence.NewDocumentProvider(idx, gen, a.prompts, s.Subject), nil
	}
	var embedder docindex.Embedder
	if s.DocIndex.GeminiAPIKey != "" {
		e := docindex.NewGeminiEmbedder(s.DocIndex.GeminiAPIKey, s.DocIndex.EmbeddingModel)
		a.closers = append(a.closers, func() { _ = e.Close() })
		embedder = e
	}
	idx, err := docindex.NewPostgresIndex(pool, s.DocIndex.Table, embedder)
	if err != nil {
		return nil, err
	}
	return evidence.NewDocumentProvider(idx, gen, a.prompts, s.Subject), nil
}

func (a *app) metricsProvider(s config.Settings, pool *pgxpool.Pool) (research.EvidenceProvider, error) {
	var rows metricstore.Store
	switch s.Metrics.Backend {
	case "postgres":
		if pool == nil {
			return nil, nil
		}
		st, err := metricstore.NewPostgresStore(pool, s.Metrics.Table)
		if err != nil {
			return nil, err
		}
		rows = st
	case "snowflake", "":
		if !s.Snowflake.Configured() {
			return nil, nil
		}
		db, err := metricstore.OpenSnowflake(s.Snowflake)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		st, err := metricstore.NewSQLStore(db, s.Metrics.Table)
		if err != nil {
			return nil, err
		}
		rows = st
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", s.Metrics.Backend)
	}
	return evidence.NewMetricsProvider(rows, charts.NewSVGRenderer(s.Subject), a.agents.ForRole(agent.RoleMetrics), a.prompts, s.Subject), nil
}

// newArchive returns nil without an error when no bucket is configured.
func newArchive(ctx context.Context, s config.ArchiveSettings) (researchapi.Archiver, error) {
	if s.Bucket == "" {
		return nil, nil
	}
	awsCfg, err := archive.LoadConfig(ctx, s.Profile, s.Region)
	if err != nil {
		return nil, err
	}
	arc, err := archive.NewS3Archive(awsCfg, s.Bucket, s.Prefix)
	if err != nil {
		return nil, err
	}
	return arc, nil
}

// newSearcher prefers SerpAPI and falls back to DuckDuckGo when enabled.
func newSearcher(s config.SearchSettings) websearch.Searcher {
	var ddg websearch.Searcher
	if s.DuckDuckGo {
		ddg = websearch.NewDuckDuckGoClient()
	}
	if s.SerpAPIKey == "" {
		return ddg
	}
	serp := websearch.NewSerpAPIClient(s.SerpAPIKey)
	if ddg == nil {
		return serp
	}
	return websearch.Fallback{Primary: serp, Secondary: ddg}
}
