package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veilscan/veilscan/internal/config"
	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/logging"
	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/scan"
	"github.com/veilscan/veilscan/internal/store"
	"github.com/veilscan/veilscan/internal/webclient"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "veilscan",
	Short: "OSINT presence scanner and privacy risk auditor",
	Long: `VeilScan maps a person's digital footprint from a single email address or
username. It checks twenty platforms concurrently, scores the exposure across
six risk categories, and drafts GDPR/CCPA deletion request emails for the
platforms where data was found.

Scan data is retained only for the configured TTL and can be wiped on demand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: veilscan.yaml in search paths)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	rootCmd.Version = "1.0.0"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(component string) interfaces.Logger {
	return logging.NewStdoutLogger(component)
}

// components is everything a scan needs wired up.
type components struct {
	logger       interfaces.Logger
	store        *store.SQLiteStore
	webClient    webclient.WebClient
	registry     *probe.Registry
	orchestrator *scan.Orchestrator
}

func buildComponents(logger interfaces.Logger) (*components, error) {
	st, err := store.NewSQLiteStore(cfg.StoreConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	wc, err := webclient.New(cfg.WebClientConfig(), logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create web client: %w", err)
	}

	reg, err := probe.DefaultRegistry(cfg.ProbeConfig(), wc, logger)
	if err != nil {
		wc.Close()
		st.Close()
		return nil, fmt.Errorf("failed to build probe registry: %w", err)
	}

	orch, err := scan.NewOrchestrator(cfg.ScanConfig(), st, reg, logger)
	if err != nil {
		wc.Close()
		st.Close()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return &components{
		logger:       logger,
		store:        st,
		webClient:    wc,
		registry:     reg,
		orchestrator: orch,
	}, nil
}

func (c *components) close() {
	c.orchestrator.Shutdown()
	c.webClient.Close()
	c.store.Close()
}
