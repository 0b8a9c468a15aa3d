package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"appraisal/internal/app/server"
	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/auth"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
	"appraisal/internal/platform/logging"
	"appraisal/internal/reports"
	"appraisal/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "appraisal",
		Short:        "360-degree appraisal survey service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newReportCmd(), newTokenCmd())
	return root
}

// loadConfig reads and validates configuration and installs the default
// logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			app.Jobs.Start(ctx)

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           app.Router,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				slog.Info("appraisal server listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "auth", cfg.JWTSecret != "")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.DriverPostgres)
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+name)
			}
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var (
		revieweeID string
		surveyID   string
		category   string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a reviewee report as PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.DriverMemory {
				return errors.New("report needs a persistent store; the memory store is always empty here")
			}
			app, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Appraisal.RevieweeReport(cmd.Context(), appraisal.Filter{
				RevieweeID: revieweeID,
				SurveyID:   surveyID,
				Category:   category,
			})
			if err != nil {
				return err
			}

			opts := reports.Options{}
			if user, err := app.Catalog.UserByID(cmd.Context(), revieweeID); err == nil {
				opts.RevieweeName = user.Name
			}
			if surveyID != "" {
				if survey, err := app.Catalog.SurveyByID(cmd.Context(), surveyID); err == nil {
					opts.SurveyName = survey.Name
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := reports.WritePDF(w, report, opts); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d answer lists, overall %s)\n", out, report.AnswerLists, reports.ScoreLabel(report.OverallAverage))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&revieweeID, "reviewee", "", "reviewee user id")
	cmd.Flags().StringVar(&surveyID, "survey", "", "restrict to one survey")
	cmd.Flags().StringVar(&category, "category", "", "restrict to one question category")
	cmd.Flags().StringVarP(&out, "out", "o", "report.pdf", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("reviewee")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			parsed, err := appraisal.ParseRole(role)
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: userID, Role: string(parsed)}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the uid claim")
	cmd.Flags().StringVar(&role, "role", string(appraisal.RoleManager), "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
