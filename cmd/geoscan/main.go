package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/geoscan/internal/config"
	"github.com/amosWeiskopf/geoscan/internal/logging"
	"github.com/amosWeiskopf/geoscan/internal/models"
	"github.com/amosWeiskopf/geoscan/pkg/crawler"
	"github.com/amosWeiskopf/geoscan/pkg/reporter"
	"github.com/amosWeiskopf/geoscan/pkg/scorer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "geoscan",
	Short: "geoscan - GEO content crawler and scorer",
	Long: `geoscan crawls a website, extracts its content and scores every page
for how well AI answer engines can consume and cite it.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [URL]",
	Short: "Crawl a website and optionally score it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		maxPages, _ := cmd.Flags().GetInt("max-pages")
		noScore, _ := cmd.Flags().GetBool("no-score")

		// scoring configuration errors are fatal before any request is made
		var sc *config.ScoringConfig
		if !noScore {
			if sc, err = loadScoring(cmd, cfg); err != nil {
				return err
			}
		}

		var metrics *crawler.Metrics
		if cfg.Metrics.Enabled {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics = crawler.NewMetrics(reg)
			srv := serveMetrics(cfg.Metrics.Addr, reg, logger)
			defer srv.Close()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := crawler.New(crawler.OptionsFromConfig(cfg.Crawler),
			crawler.WithLogger(logger),
			crawler.WithMetrics(metrics),
		)
		analysis, err := c.ScrapeWebsite(ctx, args[0], maxPages)
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}

		report := reporter.Report{Analysis: analysis}
		if sc != nil {
			score := scorer.New(sc, logger).ScoreSite(analysis)
			report.Score = &score
		}
		return writeReport(cmd, report)
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score [ANALYSIS.json]",
	Short: "Score a previously saved crawl",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		sc, err := loadScoring(cmd, cfg)
		if err != nil {
			return err
		}

		analysis, err := readAnalysis(args[0])
		if err != nil {
			return err
		}

		score := scorer.New(sc, logger).ScoreSite(analysis)
		return writeReport(cmd, reporter.Report{Score: &score})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate-config [SECTOR.yaml]",
	Short: "Validate a sector scoring configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := config.LoadScoring(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d content types, %d primary keywords)\n",
			args[0], len(sc.ContentTypes), len(sc.Keywords.Primary))
		return nil
	},
}

func init() {
	// Crawl command flags
	crawlCmd.Flags().Int("max-pages", 0, "Maximum pages to fetch (default from config)")
	crawlCmd.Flags().Bool("no-score", false, "Only crawl, skip scoring")

	for _, cmd := range []*cobra.Command{crawlCmd, scoreCmd} {
		cmd.Flags().String("scoring-config", "", "Sector scoring config (default from config)")
		cmd.Flags().String("format", reporter.FormatJSON, "Output format (json, markdown)")
		cmd.Flags().String("output", "", "Output file (default stdout)")
	}

	// Add commands to root
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(validateCmd)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}

// setup loads the application config and builds the logger
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}

	// keep stdout free for the report
	if cfg.Logging.OutputPath == "stdout" {
		if out, _ := cmd.Flags().GetString("output"); out == "" {
			cfg.Logging.OutputPath = "stderr"
		}
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func loadScoring(cmd *cobra.Command, cfg *config.Config) (*config.ScoringConfig, error) {
	path, _ := cmd.Flags().GetString("scoring-config")
	if path == "" {
		path = cfg.ScoringConfig
	}
	sc, err := config.LoadScoring(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring config: %w", err)
	}
	return sc, nil
}

func readAnalysis(path string) (*models.SiteAnalysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}

	// accept both a bare analysis and a crawl report wrapping one
	var report reporter.Report
	if err := json.Unmarshal(data, &report); err == nil && report.Analysis != nil {
		return report.Analysis, nil
	}
	var analysis models.SiteAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", path, err)
	}
	return &analysis, nil
}

func writeReport(cmd *cobra.Command, report reporter.Report) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := reporter.New().Write(w, report, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to %s\n", output)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics", zap.String("addr", addr))
	return srv
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
