package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/build"
	"github.com/magnetarlabs/pulsar/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the workspace output directory",
	Long: "Deletes the output root: staged manifests, built archives, the\n" +
		"action cache, and the wheel store. The next build starts cold.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		ws, err := loadWorkspace(cfg)
		if err != nil {
			return err
		}
		out := build.OutDir(ws)
		if err := os.RemoveAll(out); err != nil {
			return fmt.Errorf("removing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "removed %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
