package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veilscan/veilscan/internal/store"
	"github.com/veilscan/veilscan/internal/sweeper"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Wipe expired scan data once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger("veilscan")

		st, err := store.NewSQLiteStore(cfg.StoreConfig(), logger)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		sw, err := sweeper.New(cfg.SweeperConfig(), st, logger)
		if err != nil {
			return err
		}

		wiped, err := sw.SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("wiped %d expired scan(s)\n", wiped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
