package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/build"
	"github.com/magnetarlabs/pulsar/internal/config"
	"github.com/magnetarlabs/pulsar/internal/target"
	"github.com/magnetarlabs/pulsar/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <label>",
	Short: "Rebuild a target whenever its inputs change",
	Long: "Builds the target, then watches every package directory in its\n" +
		"transitive closure. Source, data, and prebuilt edits trigger a\n" +
		"rebuild; a BUILD.toml or workspace.toml edit reloads the workspace\n" +
		"first. Stop with Ctrl-C.",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	labels, err := parseLabels(args)
	if err != nil {
		return err
	}
	label := labels[0]

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for {
		reload, err := watchOnce(ctx, cfg, label)
		if err != nil {
			return err
		}
		if !reload {
			return nil
		}
		fmt.Fprintln(os.Stderr, "declarations changed, reloading workspace")
	}
}

// watchOnce builds the target and watches its closure dirs until the
// context is canceled (done, return false) or a declaration file changes
// (return true so the caller reloads and starts over).
func watchOnce(ctx context.Context, cfg config.Config, label target.Label) (bool, error) {
	ws, err := loadWorkspace(cfg)
	if err != nil {
		return false, err
	}
	if err := ensureWheels(ctx, cfg, ws, []target.Label{label}); err != nil {
		return false, err
	}
	b, cleanup, err := newBuilder(ctx, cfg, ws)
	if err != nil {
		return false, err
	}
	defer cleanup()

	rebuild := func() {
		res, err := b.Build(ctx, label)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			return
		}
		status := "built"
		if res.CacheHit {
			status = "cached"
		}
		fmt.Fprintf(os.Stderr, "%s %s -> %s\n", status, res.Label, res.Output)
	}
	rebuild()

	w, err := watch.New(watchDirs(ws, b, label))
	if err != nil {
		return false, err
	}
	if err := w.Start(); err != nil {
		return false, err
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, nil
		case change, ok := <-w.Changes:
			if !ok {
				return false, nil
			}
			if change.Kind == watch.ChangeBuildFile {
				return true, nil
			}
			if cfg.Verbose {
				fmt.Fprintf(os.Stderr, "[watch] %s\n", change.File)
			}
			rebuild()
		}
	}
}

// watchDirs collects the workspace root plus the package directory of the
// target and every transitive dependency.
func watchDirs(ws *target.Workspace, b *build.Builder, label target.Label) []string {
	seen := map[string]bool{ws.Root: true}
	dirs := []string{ws.Root}

	add := func(id string) {
		l, err := target.ParseLabel(id, "")
		if err != nil {
			return
		}
		dir := filepath.Join(ws.Root, l.Dir)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	add(label.String())
	for _, id := range b.Resolver.Graph().Ancestors(label.String()) {
		add(id)
	}

	sort.Strings(dirs[1:])
	return dirs
}
