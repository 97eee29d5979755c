package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-forecast-qa/internal/api/http"
	"github.com/i474232898/weather-forecast-qa/internal/config"
	"github.com/i474232898/weather-forecast-qa/internal/qa"
	"github.com/i474232898/weather-forecast-qa/internal/scheduler"
	"github.com/i474232898/weather-forecast-qa/internal/store"
	"github.com/i474232898/weather-forecast-qa/internal/weather"
	"github.com/i474232898/weather-forecast-qa/internal/weather/providers"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "weather-forecast-qa",
		Short:        "Hyperlocal NWS forecast Q&A",
		Long:         "Resolve a location, fetch its NWS gridpoint forecast and answer questions about it with an LLM",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(reduceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			svc := newWeatherService(cfg, log)
			orch, err := newOrchestrator(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			// In-memory session registry with configured retention.
			sessions := store.NewMemoryStore(cfg.SessionMaxHistory, cfg.SessionMaxIdle)

			sched := scheduler.New(sessions, cfg.SessionSweepInterval, log)
			if err := sched.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer sched.Stop()

			app := fiber.New(fiber.Config{
				AppName:               "weather-forecast-qa",
				DisableStartupMessage: true,
				ReadTimeout:           10 * time.Second,
				ErrorHandler:          httpapi.ErrorHandler,
			})

			// Global middleware
			app.Use(logger.New())
			app.Use(recover.New())

			app.Get("/health", func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{
					"status":   "ok",
					"service":  "weather-forecast-qa",
					"sessions": sessions.Len(),
				})
			})

			httpapi.RegisterRoutes(app, httpapi.Deps{
				Weather:  svc,
				Sessions: sessions,
				QA:       orch,
				Logger:   log,
			})

			go func() {
				if err := app.Listen(":" + cfg.Port); err != nil {
					log.Errorw("fiber server stopped", "error", err)
				}
			}()
			log.Infow("listening", "port", cfg.Port)

			// Wait for termination signal
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				log.Errorw("error during shutdown", "error", err)
			}
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <location> <question>",
		Short: "Answer one question about a location's forecast",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			svc := newWeatherService(cfg, log)
			orch, err := newOrchestrator(ctx, cfg, log)
			if err != nil {
				return err
			}

			fc, err := svc.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load forecast for %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Location resolved: %.5f, %.5f\n",
				fc.Coordinates.Latitude, fc.Coordinates.Longitude)

			now := time.Now()
			if text, ok := svc.Summary(fc.Dataset, now); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "Tomorrow: %s\n", text)
			}

			out := cmd.OutOrStdout()
			_, err = orch.Ask(ctx, svc.Reduce(fc.Dataset, now), nil, strings.Join(args[1:], " "),
				now.In(svc.Location(fc.Dataset)), svc.WindowHours(),
				func(chunk string) error {
					_, werr := fmt.Fprint(out, chunk)
					return werr
				})
			fmt.Fprintln(out)
			return err
		},
	}
}

func reduceCmd() *cobra.Command {
	var nowFlag string

	cmd := &cobra.Command{
		Use:   "reduce <bundle.json>",
		Short: "Reduce a saved NWS bundle and print the LLM context JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read bundle: %w", err)
			}
			ds, err := weather.DecodeBundle(data)
			if err != nil {
				return err
			}

			now := time.Now()
			if nowFlag != "" {
				if now, err = time.Parse(time.RFC3339, nowFlag); err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
			}

			reduced := newReducer(cfg).Reduce(ds, now)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reduced)
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "reference time (RFC 3339) instead of the current time")
	return cmd
}

func setup() (*config.AppConfig, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	var base *zap.Logger
	if cfg.Debug {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, base.Sugar(), nil
}

func newReducer(cfg *config.AppConfig) *weather.Reducer {
	return weather.NewReducer(
		weather.WithWindowHours(cfg.WindowHours),
		weather.WithGridFiltering(cfg.FilterGrid),
	)
}

func newWeatherService(cfg *config.AppConfig, log *zap.SugaredLogger) *weather.Service {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var resolver weather.Resolver = providers.NewCensusResolver(httpClient, cfg.CensusBaseURL)
	if cfg.GeocoderAPIKey != "" {
		resolver = providers.NewGoogleResolver(cfg.GeocoderAPIKey)
	}

	fetcher := providers.NewNWSFetcher(httpClient,
		providers.NWSBaseURLOption(cfg.NWSBaseURL),
		providers.NWSUserAgentOption(cfg.NWSUserAgent),
		providers.NWSRateLimitOption(cfg.NWSRateLimit, 5),
		providers.NWSLoggerOption(log),
	)

	return weather.NewService(resolver, fetcher, newReducer(cfg), log)
}

func newOrchestrator(ctx context.Context, cfg *config.AppConfig, log *zap.SugaredLogger) (*qa.Orchestrator, error) {
	gen, err := qa.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return qa.NewOrchestrator(gen, log), nil
}
