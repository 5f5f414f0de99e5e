package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configapi "research_assistant/pkg/api/config"
	researchapi "research_assistant/pkg/api/research"
	"research_assistant/pkg/core/agent"
	"research_assistant/pkg/core/research"
	researchmiddleware "research_assistant/pkg/server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Router   research.Router
	Reports  *research.ReportAssembler
	Agents   *agent.Manager
	Archive  researchapi.Archiver
	Subject  string
	Quarters []string
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	deps := config.Dependencies
	researchHandler := researchapi.NewHandler(researchapi.Options{
		Router:   deps.Router,
		Reports:  deps.Reports,
		Archive:  deps.Archive,
		Subject:  deps.Subject,
		Quarters: deps.Quarters,
	})

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(researchmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)
	if config.RequestTimeout > 0 {
		router.Use(middleware.Timeout(config.RequestTimeout))
	}

	router.Get("/", researchHandler.Root)
	router.Get("/health", researchHandler.Health)

	router.Route("/api", func(r chi.Router) {
		r.Post("/agent-query", researchHandler.AgentQuery)
		r.Post("/generate-report", researchHandler.GenerateReport)
		r.Get("/available-quarters", researchHandler.AvailableQuarters)

		if deps.Agents != nil {
			cfgHandler := configapi.NewHandler(deps.Agents)
			r.Get("/config", cfgHandler.HandleConfig)
			r.Post("/config/switch", cfgHandler.HandleSwitch)
		}
	})

	shutdown := config.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = defaultShutdownTimeout
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdown,
	}
}

// Handler exposes the router, mainly for tests.
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until the listener fails or the process receives SIGINT or
// SIGTERM, then drains in-flight requests.
func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
