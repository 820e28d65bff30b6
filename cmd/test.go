package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/config"
	"github.com/magnetarlabs/pulsar/internal/target"
)

var testCmd = &cobra.Command{
	Use:   "test <label>...",
	Short: "Build test launchers, optionally running them",
	Long: "Builds each py_test target's pex archive and launcher script.\n" +
		"With --run, each launcher is executed in turn and the first failure\n" +
		"stops the run.",
	Args: cobra.MinimumNArgs(1),
	RunE: runTest,
}

func init() {
	testCmd.Flags().Bool("run", false, "execute each launcher after building it")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ws, err := loadWorkspace(cfg)
	if err != nil {
		return err
	}
	labels, err := parseLabels(args)
	if err != nil {
		return err
	}
	for _, l := range labels {
		spec, ok := ws.Target(l)
		if !ok {
			return fmt.Errorf("%w: %s", target.ErrUnknownDep, l)
		}
		if spec.Kind != target.KindTest {
			return fmt.Errorf("%s is a %s, not a py_test", l, spec.Kind)
		}
	}
	if err := ensureWheels(cmd.Context(), cfg, ws, labels); err != nil {
		return err
	}

	b, cleanup, err := newBuilder(cmd.Context(), cfg, ws)
	if err != nil {
		return err
	}
	defer cleanup()

	run, _ := cmd.Flags().GetBool("run")
	for _, l := range labels {
		res, err := b.Build(cmd.Context(), l)
		if err != nil {
			return fmt.Errorf("building %s: %w", l, err)
		}
		fmt.Fprintf(os.Stderr, "launcher %s -> %s\n", res.Label, res.Output)
		if !run {
			continue
		}
		c := exec.CommandContext(cmd.Context(), "sh", res.Output)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("test %s failed: %w", res.Label, err)
		}
	}
	return nil
}
