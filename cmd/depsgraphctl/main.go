// Package main provides the depsgraphctl CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenedeps/depsgraph/pkg/build"
	"github.com/scenedeps/depsgraph/pkg/callback"
	"github.com/scenedeps/depsgraph/pkg/config"
	"github.com/scenedeps/depsgraph/pkg/diagnostic"
	"github.com/scenedeps/depsgraph/pkg/fixture"
	"github.com/scenedeps/depsgraph/pkg/graph"
	"github.com/scenedeps/depsgraph/pkg/logx"
	"github.com/scenedeps/depsgraph/pkg/schedule"
	"github.com/scenedeps/depsgraph/pkg/tag"
	"github.com/scenedeps/depsgraph/pkg/trace"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "depsgraphctl",
		Short: "depsgraphctl - scene dependency graph builder and scheduler",
		Long: `depsgraphctl builds, validates, and schedules a scene dependency
graph from a YAML scene fixture.

Features:
  • Scene-walk graph construction from a declarative scene description
  • Structural validation and cycle detection
  • Topological scheduling with script-lock and SIM-class serialization
  • Optional badger-backed evaluation-history trace`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (overlays environment defaults)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("depsgraphctl v%s\n", version)
		},
	})

	buildCmd := &cobra.Command{
		Use:   "build <scene.yaml>",
		Short: "Build and validate a graph from a scene fixture",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}
	buildCmd.Flags().String("export", "", "Write the built graph as JSON to this path")
	rootCmd.AddCommand(buildCmd)

	validateCmd := &cobra.Command{
		Use:   "validate <scene.yaml>",
		Short: "Build a graph and report validation errors without scheduling",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	rootCmd.AddCommand(validateCmd)

	evalCmd := &cobra.Command{
		Use:   "eval <scene.yaml>",
		Short: "Build, tag the whole scene dirty, and run the scheduler",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}
	evalCmd.Flags().Bool("time-changed", false, "Treat the flush as a time-changed frame (calls evaluate_on_framechange)")
	evalCmd.Flags().Float64("ctime", 0, "Current time to stamp on the time source when --time-changed is set")
	rootCmd.AddCommand(evalCmd)

	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded evaluation history",
	}
	traceDumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every recorded trace event in sequence order",
		RunE:  runTraceDump,
	}
	traceCmd.AddCommand(traceDumpCmd)
	rootCmd.AddCommand(traceCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromYAML(path)
	} else {
		cfg = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logx.SetLevel(logx.ParseLevel(cfg.Logging.Level))
	return cfg, nil
}

func buildGraphFromFixture(path string) (*graph.Graph, error) {
	graph.RegisterNodeTypes()

	scene, err := fixture.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading scene fixture: %w", err)
	}
	reader := fixture.NewReader(scene)

	g := graph.New()
	if err := build.BuildScene(g, reader); err != nil {
		return nil, fmt.Errorf("building scene graph: %w", err)
	}
	return g, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	g, err := buildGraphFromFixture(args[0])
	if err != nil {
		return err
	}
	if err := graph.ValidateLinks(g); err != nil {
		return fmt.Errorf("validating graph: %w", err)
	}
	fmt.Printf("built graph: %d nodes, %d relations\n", len(g.Nodes()), len(g.Relations()))

	exportPath, _ := cmd.Flags().GetString("export")
	if exportPath != "" {
		data, err := diagnostic.MarshalJSON(g)
		if err != nil {
			return fmt.Errorf("exporting graph: %w", err)
		}
		if err := os.WriteFile(exportPath, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("wrote export to %s\n", exportPath)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	g, err := buildGraphFromFixture(args[0])
	if err != nil {
		return err
	}
	if err := graph.ValidateLinks(g); err != nil {
		fmt.Printf("validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("graph is valid")
	return nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := buildGraphFromFixture(args[0])
	if err != nil {
		return err
	}

	timeChanged, _ := cmd.Flags().GetBool("time-changed")
	ctime, _ := cmd.Flags().GetFloat64("ctime")
	if err := tag.AllVisible(g, g.Entities()); err != nil {
		return fmt.Errorf("tagging scene: %w", err)
	}

	callbacks := callback.NewRegistry()
	for _, n := range g.Nodes() {
		if !n.IsLeaf() {
			continue
		}
		name := n.Name
		n.CallbackName = name
		if err := callbacks.Register(name, "generic", func(ctx context.Context, op *graph.Node) error {
			logx.Debugf("evaluating %s/%s", op.Kind, op.Name)
			return nil
		}, "no-op stand-in; host callbacks implement the real evaluators"); err != nil {
			// duplicate operation names across different entities share a
			// callback identity on purpose: evaluators key off the node, not
			// the registry entry.
			continue
		}
	}

	sched := schedule.New(callbacks, cfg.Scheduler.WorkerCount, cfg.Scheduler.ScriptLockEnabled)

	if cfg.Features.TraceEnabled {
		rec, err := trace.Open(cfg.Features.TracePath)
		if err != nil {
			return fmt.Errorf("opening trace store: %w", err)
		}
		defer rec.Close()
		sched.AddObserver(rec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var outcomes []schedule.Outcome
	if timeChanged {
		outcomes, err = sched.EvaluateOnFramechange(ctx, g, ctime)
	} else {
		outcomes, err = sched.EvaluateOnRefresh(ctx, g)
	}
	if err != nil {
		return fmt.Errorf("running scheduler: %w", err)
	}

	var failed, skipped, ran int
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			skipped++
		case o.Err != nil:
			failed++
		default:
			ran++
		}
	}
	fmt.Printf("evaluated %d operations: %d ran, %d skipped, %d failed\n", len(outcomes), ran, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

func runTraceDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rec, err := trace.Open(cfg.Features.TracePath)
	if err != nil {
		return fmt.Errorf("opening trace store: %w", err)
	}
	defer rec.Close()

	events, err := rec.All()
	if err != nil {
		return fmt.Errorf("reading trace events: %w", err)
	}
	for _, e := range events {
		line := fmt.Sprintf("%d  %s  %-8s %s/%s", e.Seq, e.Time.Format(time.RFC3339), e.Kind, e.NodeKind, e.NodeName)
		if e.Error != "" {
			line += fmt.Sprintf("  error=%q", e.Error)
		}
		if e.SkipCause != "" {
			line += fmt.Sprintf("  reason=%q", e.SkipCause)
		}
		fmt.Println(line)
	}
	return nil
}
