package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/api"
	"github.com/satyashield/satyashield/internal/app"
	"github.com/satyashield/satyashield/internal/config"
	"github.com/satyashield/satyashield/internal/factcheck"
	"github.com/satyashield/satyashield/internal/models"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Fact-check a claim and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var relatedCmd = &cobra.Command{
	Use:   "related",
	Short: "Find related articles for a headline",
	RunE:  runRelated,
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "List merged top headlines",
	RunE:  runExplore,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a sample config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.GenerateSample(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

var (
	relatedTitle   string
	relatedSummary string
	localeLang     string
	localeRegion   string
	checkNewsID    string
	exploreReq     models.ExploreRequest
)

func init() {
	relatedCmd.Flags().StringVar(&relatedTitle, "title", "", "headline title")
	relatedCmd.Flags().StringVar(&relatedSummary, "summary", "", "headline summary")
	checkCmd.Flags().StringVar(&checkNewsID, "news-id", "", "attach the verdict to this content record")
	exploreCmd.Flags().StringVar(&exploreReq.Category, "category", "", "headline category")
	exploreCmd.Flags().StringVar(&exploreReq.Country, "country", "", "two-letter country code")
	exploreCmd.Flags().StringVar(&exploreReq.Query, "q", "", "keywords")
	for _, c := range []*cobra.Command{relatedCmd, checkCmd, exploreCmd} {
		c.Flags().StringVar(&localeLang, "lang", "", "language code")
		c.Flags().StringVar(&localeRegion, "region", "", "region code")
	}
}

// setup loads configuration, configures logging and builds the application.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging)
	return app.New(ctx, cfg)
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Janitor != nil {
		a.Janitor.Start()
	}

	handler := api.NewHandler(a.Aggregator, a.Engine, a.Explorer, a.Store)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:           api.NewRouter(a.Config, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", a.Config.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Engine.Check(cmd.Context(), factcheck.Request{
		Text:   strings.Join(args, " "),
		NewsID: checkNewsID,
		Lang:   localeLang,
		Region: localeRegion,
	})
	return printJSON(cmd, result)
}

func runRelated(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.Aggregator.Related(cmd.Context(), models.RelatedRequest{
		Title:   relatedTitle,
		Summary: relatedSummary,
		Lang:    localeLang,
		Region:  localeRegion,
	})
	return printJSON(cmd, resp)
}

func runExplore(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	req := exploreReq
	req.Lang = localeLang
	if req.Country == "" {
		req.Country = localeRegion
	}
	return printJSON(cmd, a.Explorer.Explore(cmd.Context(), req))
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
