package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/config"
	"github.com/magnetarlabs/pulsar/internal/pex"
	"github.com/magnetarlabs/pulsar/internal/resolve"
	"github.com/magnetarlabs/pulsar/internal/target"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check workspace declarations and tool availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ok := true

		ws, err := loadWorkspace(cfg)
		if err != nil {
			return err
		}

		if errs := target.Validate(ws); len(errs) > 0 {
			for i := range errs {
				fmt.Fprintf(os.Stderr, "✗ %v\n", &errs[i])
			}
			ok = false
		} else {
			fmt.Fprintf(os.Stderr, "✓ %d targets declared cleanly\n", len(ws.Targets))
		}

		if _, err := resolve.New(ws, ""); err != nil {
			fmt.Fprintf(os.Stderr, "✗ dependency graph: %v\n", err)
			ok = false
		} else {
			fmt.Fprintln(os.Stderr, "✓ dependency graph is acyclic")
		}

		inv := pex.NewInvoker(toolPath(cfg, ws), cfg.Verbose)
		if err := inv.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "✗ pex_wrapper: %v\n", err)
			ok = false
		} else {
			fmt.Fprintln(os.Stderr, "✓ packaging tool found")
		}

		if !ok {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
