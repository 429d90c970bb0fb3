/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/hemalyze/analyzer"
	"github.com/humaidq/hemalyze/logging"
	"github.com/humaidq/hemalyze/metrics"
	"github.com/humaidq/hemalyze/routes"
	"github.com/humaidq/hemalyze/static"
	"github.com/humaidq/hemalyze/templates"
)

const (
	runtimeEnvVar       = "HEMALYZE_ENV"
	csrfSecretEnvVar    = "CSRF_SECRET"
	defaultRateLimit    = 10
	shutdownGracePeriod = 15 * time.Second
)

var CmdStart = &cli.Command{
	Name:    "start",
	Aliases: []string{"run"},
	Usage:   "Start the web server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Value:   "8080",
			Sources: cli.EnvVars("PORT"),
			Usage:   "the web server port",
		},
		&cli.StringFlag{
			Name:    "analyzer-url",
			Value:   analyzer.DefaultEndpoint,
			Sources: cli.EnvVars("ANALYZER_URL"),
			Usage:   "endpoint of the report analyzer service",
		},
		&cli.BoolFlag{
			Name:  "dev",
			Value: false,
			Usage: "enables development mode (templates are read from disk)",
		},
		&cli.BoolFlag{
			Name:    "trust-proxy",
			Sources: cli.EnvVars("TRUST_PROXY"),
			Usage:   "rate limit by X-Forwarded-For (only behind a proxy that sets it)",
		},
		&cli.FloatFlag{
			Name:    "rate-limit",
			Value:   defaultRateLimit,
			Sources: cli.EnvVars("ANALYZE_RATE_LIMIT"),
			Usage:   "uploads allowed per minute per client IP (0 disables the limit)",
		},
	},
	Action: start,
}

// webConfig holds everything newWebApp needs to assemble the handler chain.
type webConfig struct {
	dev        bool
	csrfSecret string
	rateLimit  float64
	trustProxy bool
	analyzer   routes.ReportAnalyzer
}

func start(ctx context.Context, cmd *cli.Command) (err error) {
	logging.Init()

	production, err := parseRuntimeEnv(os.Getenv(runtimeEnvVar))
	if err != nil {
		return err
	}

	csrfSecret := strings.TrimSpace(os.Getenv(csrfSecretEnvVar))
	if production && csrfSecret == "" {
		return errCSRFSecretRequired
	}

	client := analyzer.NewClient(cmd.String("analyzer-url"))

	f, err := newWebApp(webConfig{
		dev:        cmd.Bool("dev"),
		csrfSecret: csrfSecret,
		rateLimit:  cmd.Float("rate-limit"),
		trustProxy: cmd.Bool("trust-proxy"),
		analyzer:   client,
	})
	if err != nil {
		return err
	}

	port := cmd.String("port")

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", port),
		Handler:           f,
		ErrorLog:          requestStdLogger,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads can be large; analysis time is bounded by the analyzer only.
		ReadTimeout: 2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		appLogger.Info("Starting web server",
			"port", port,
			"analyzer", client.Endpoint(),
			"production", production,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down web server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}

	return nil
}

// parseRuntimeEnv reports whether the value selects production mode. An
// empty value means development.
func parseRuntimeEnv(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "development", "dev":
		return false, nil
	case "production", "prod":
		return true, nil
	default:
		return false, errInvalidRuntimeEnv
	}
}

func newWebApp(cfg webConfig) (*flamego.Flame, error) {
	templateOpts := template.Options{Directory: "templates"}

	if !cfg.dev {
		fs, err := template.EmbedFS(templates.Templates, ".", []string{".html"})
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}

		templateOpts = template.Options{FileSystem: fs}
	}

	limiter := routes.NewIPRateLimiter(cfg.rateLimit, cfg.trustProxy)

	f := flamego.New()
	f.Use(routes.RequestLogger)
	f.Use(metrics.Middleware())
	f.Use(flamego.Recovery())
	f.Use(routes.SecurityHeaders())
	f.Use(flamego.Static(flamego.StaticOptions{
		FileSystem: http.FS(static.Static),
	}))
	f.Use(session.Sessioner())
	f.Use(csrf.Csrfer(csrf.Options{
		Secret: cfg.csrfSecret,
	}))
	f.Use(template.Templater(templateOpts))
	f.Use(routes.NoCacheHeaders())
	f.Use(routes.CSRFInjector())
	f.Use(routes.FlashInjector())
	f.Use(func(c flamego.Context) {
		c.MapTo(cfg.analyzer, (*routes.ReportAnalyzer)(nil))
	})

	f.Get("/", routes.ReportPage)
	f.Post("/analyze", limiter.Handler(), routes.LimitUploadSize(routes.MaxUploadBytes), csrf.Validate, routes.AnalyzeReport)
	f.Get("/export", routes.ExportReport)
	f.Get("/metrics", metrics.Serve)

	configureEmptyNotFoundHandler(f)

	return f, nil
}

func configureEmptyNotFoundHandler(f *flamego.Flame) {
	f.NotFound(func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNotFound)
	})
}
