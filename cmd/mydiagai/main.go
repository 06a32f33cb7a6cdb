package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mydiagai/internal/catalog"
	"mydiagai/internal/config"
	"mydiagai/internal/diagnostic"
	"mydiagai/internal/logging"
	"mydiagai/internal/platform/gateway"
	"mydiagai/internal/report"
	"mydiagai/internal/scoring"
)

const serviceName = "mydiagai"

func main() {
	rootCmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Symptom-based diagnostic assistant",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the diagnostic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

// setup loads and validates the configuration and builds the logger.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, serviceName)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return nil, logger, err
	}
	return cfg, logger, nil
}

func newScorer(cfg *config.Config, gw *gateway.Client) scoring.Scorer {
	if cfg.Scorer == config.ScorerRemote {
		return scoring.NewRemote(gw)
	}
	return scoring.NewStatic()
}

func newRouter(cfg *config.Config, logger zerolog.Logger, svc diagnostic.Service, gw gateway.Backend) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(gateway.ForwardAuth)
		diagnostic.RegisterRoutes(r, diagnostic.NewHandler(svc, logger))
		gateway.RegisterRoutes(r, gateway.NewHandler(gw, logger))
	})
	return r
}

// cors answers preflight requests itself and echoes an allowed origin.
func cors(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewayTimeout, logger)
	exporter := report.NewExporter(cfg.PDFFontPath, logger)
	svc := diagnostic.NewService(
		diagnostic.NewRepository(),
		catalog.Default(),
		newScorer(cfg, gw),
		exporter,
		diagnostic.Config{
			AnalysisDelay: cfg.AnalysisDelay,
			ScoreTimeout:  cfg.GatewayTimeout,
			SessionTTL:    cfg.SessionTTL,
		},
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, logger, svc, gw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.SessionTTL > 0 {
		go expireSessions(sweepCtx, svc, sweepInterval(cfg.SessionTTL))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("scorer", cfg.Scorer).
			Str("cors", strings.Join(cfg.CORSOrigins, ",")).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// sweepInterval checks a few times per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every > time.Minute {
		every = time.Minute
	}
	if every < time.Second {
		every = time.Second
	}
	return every
}

func expireSessions(ctx context.Context, svc diagnostic.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ExpireIdle(ctx)
		}
	}
}
