package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build <label>...",
	Short: "Build pex archives for the named targets",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ws, err := loadWorkspace(cfg)
	if err != nil {
		return err
	}
	labels, err := parseLabels(args)
	if err != nil {
		return err
	}
	if err := ensureWheels(cmd.Context(), cfg, ws, labels); err != nil {
		return err
	}

	b, cleanup, err := newBuilder(cmd.Context(), cfg, ws)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, l := range labels {
		res, err := b.Build(cmd.Context(), l)
		if err != nil {
			return fmt.Errorf("building %s: %w", l, err)
		}
		status := "built"
		if res.CacheHit {
			status = "cached"
		}
		fmt.Fprintf(os.Stderr, "%s %s -> %s\n", status, res.Label, res.Output)
	}
	return nil
}
