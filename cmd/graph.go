package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magnetarlabs/pulsar/internal/build"
	"github.com/magnetarlabs/pulsar/internal/config"
)

var graphCmd = &cobra.Command{
	Use:   "graph [label]",
	Short: "Print the dependency graph in build order",
	Long: "Without arguments, prints every target in topological order with\n" +
		"its direct dependencies. With a label, prints that target's\n" +
		"transitive dependencies.",
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ws, err := loadWorkspace(cfg)
	if err != nil {
		return err
	}
	b, err := build.New(ws, nil)
	if err != nil {
		return err
	}
	g := b.Resolver.Graph()

	if len(args) == 1 {
		l, err := parseLabels(args)
		if err != nil {
			return err
		}
		if _, ok := ws.Target(l[0]); !ok {
			return fmt.Errorf("no such target: %s", l[0])
		}
		for _, dep := range g.Ancestors(l[0].String()) {
			fmt.Fprintln(os.Stdout, dep)
		}
		return nil
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}
	for _, id := range order {
		deps := g.Dependencies(id)
		if len(deps) == 0 {
			fmt.Fprintln(os.Stdout, id)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s <- %v\n", id, deps)
	}
	return nil
}
