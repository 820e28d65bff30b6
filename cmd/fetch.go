package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/build"
	"github.com/magnetarlabs/pulsar/internal/config"
	"github.com/magnetarlabs/pulsar/internal/events"
	"github.com/magnetarlabs/pulsar/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and verify the workspace's declared wheels",
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ws, err := loadWorkspace(cfg)
	if err != nil {
		return err
	}

	f := &fetch.Fetcher{StoreDir: build.WheelDir(ws), Verbose: cfg.Verbose}
	installed, err := f.Fetch(cmd.Context(), ws.Manifest.Wheels)
	if err != nil {
		return err
	}
	for _, p := range installed {
		fmt.Fprintf(os.Stderr, "installed %s\n", filepath.Base(p))
	}

	if cfg.EventsLog != "" {
		path := cfg.EventsLog
		if !filepath.IsAbs(path) {
			path = filepath.Join(ws.Root, path)
		}
		e, err := events.NewEmitter(path)
		if err != nil {
			return err
		}
		defer e.Close()
		_ = e.Emit(events.Event{Kind: events.KindFetchDone, Data: map[string]any{
			"wheels": len(installed),
		}})
	}
	return nil
}
