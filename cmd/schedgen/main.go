// Command schedgen is the CLI entry point for the scheduling engine:
// solve a request file, run a parameter-grid experiment against it, or
// solve request files and analyze/compare/chart the results. Subcommand layout
// follows the cobra root-plus-subcommand idiom the pack's other CLI
// tools (e.g. rbrl's cmd/rbrl) use: a root Command with no RunE of its
// own, one child Command per verb, flags bound with pflag's
// StringVarP/IntVarP family.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danfeder/classroom-scheduler/internal/config"
	"github.com/danfeder/classroom-scheduler/internal/telemetry"
	"github.com/danfeder/classroom-scheduler/pkg/constraints"
	"github.com/danfeder/classroom-scheduler/pkg/dashboard"
	"github.com/danfeder/classroom-scheduler/pkg/domain"
	"github.com/danfeder/classroom-scheduler/pkg/driver"
	"github.com/danfeder/classroom-scheduler/pkg/experiment"
	"github.com/danfeder/classroom-scheduler/pkg/ga"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schedgen",
		Short: "Classroom rotation schedule generator",
	}
	root.AddCommand(newSolveCmd(), newExperimentCmd(), newDashboardCmd())
	return root
}

// newSolveCmd runs the unified driver against a request file and prints
// the resulting assignments and metadata as JSON, per spec §6's Solve
// API.
func newSolveCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:          "solve <request.yaml>",
		Short:        "Solve a schedule request",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			d, err := driver.NewBuilder(req).WithConfig(cfg).Build()
			if err != nil {
				return err
			}
			logger := klog.Background()
			ctx := telemetry.WithLogger(context.Background(), logger)
			result, err := d.Solve(ctx)
			if err != nil {
				return err
			}
			return writeJSON(outputPath, result)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write result JSON here instead of stdout")
	return cmd
}

// newExperimentCmd runs the parameter-grid harness of spec §4.7 against
// a request file and a grid file ({"name": [values...]}).
func newExperimentCmd() *cobra.Command {
	var gridPath, outputPath string
	var seed uint64
	cmd := &cobra.Command{
		Use:          "experiment <request.yaml>",
		Short:        "Sweep a GA parameter grid and report sensitivity/convergence",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gridPath == "" {
				return fmt.Errorf("--grid is required")
			}
			req, cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(gridPath)
			if err != nil {
				return fmt.Errorf("reading grid file %s: %w", gridPath, err)
			}
			var grid experiment.ParameterGrid
			if err := json.Unmarshal(raw, &grid); err != nil {
				return fmt.Errorf("parsing grid file %s: %w", gridPath, err)
			}
			registry := constraints.DefaultRegistry(req)
			if problems := registry.ValidateCompatibility(); len(problems) > 0 {
				return fmt.Errorf("incompatible constraint configuration: %v", problems)
			}
			expCfg := experiment.Config{
				BaseConfig: ga.Config{
					PopulationSize: cfg.Genetic.PopulationSize,
					EliteSize:      cfg.Genetic.EliteSize,
					MutationRate:   cfg.Genetic.MutationRate,
					CrossoverRate:  cfg.Genetic.CrossoverRate,
					MaxGenerations: cfg.Genetic.MaxGenerations,
					TimeLimit:      cfg.TimeLimit,
					Adaptive:       cfg.Genetic.Adaptive,
					Parallel:       cfg.Genetic.Parallel,
				},
				Grid: grid,
				Seed: seed,
			}
			if seed == 0 {
				expCfg.Seed = cfg.Seed
			}
			logger := klog.Background()
			ctx := telemetry.WithLogger(context.Background(), logger)
			report := experiment.Run(ctx, req, registry, expCfg)
			return writeJSON(outputPath, report)
		},
	}
	cmd.Flags().StringVar(&gridPath, "grid", "", "JSON file mapping parameter name to a list of values to sweep")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write report JSON here instead of stdout")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "PRNG seed (defaults to the request file's solver.seed)")
	return cmd
}

// newDashboardCmd wraps pkg/dashboard's analyze/compare/chart API as
// CLI verbs, each solving its request file(s) itself (the CLI has no
// persistent run store, so every invocation re-solves).
func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Quality metrics, comparison and charts for solved schedules",
	}
	cmd.AddCommand(newDashboardAnalyzeCmd(), newDashboardCompareCmd(), newDashboardChartCmd())
	return cmd
}

func newDashboardAnalyzeCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:          "analyze <request.yaml>",
		Short:        "Solve a request and print its quality metrics",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, result, err := solveForDashboard(args[0])
			if err != nil {
				return err
			}
			board := dashboard.New(req)
			data := board.Analyze("run", result.Assignments)
			return writeJSON(outputPath, data)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write metrics JSON here instead of stdout")
	return cmd
}

func newDashboardCompareCmd() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:          "compare <baseline.yaml> <comparison.yaml>",
		Short:        "Solve two requests and diff their quality metrics",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseReq, baseResult, err := solveForDashboard(args[0])
			if err != nil {
				return fmt.Errorf("baseline: %w", err)
			}
			compReq, compResult, err := solveForDashboard(args[1])
			if err != nil {
				return fmt.Errorf("comparison: %w", err)
			}

			results := dashboard.Compare(
				dashboard.Analyze(baseReq, baseResult.Assignments),
				dashboard.Analyze(compReq, compResult.Assignments),
			)
			return writeJSON(outputPath, results)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write comparison JSON here instead of stdout")
	return cmd
}

func newDashboardChartCmd() *cobra.Command {
	var kind, outputPath string
	cmd := &cobra.Command{
		Use:          "chart <request.yaml>",
		Short:        "Solve a request and render an HTML bar chart of its load",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, result, err := solveForDashboard(args[0])
			if err != nil {
				return err
			}
			bar, err := dashboard.Chart(req, result.Assignments, dashboard.ChartType(kind))
			if err != nil {
				return err
			}
			if outputPath == "" {
				outputPath = "chart.html"
			}
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outputPath, err)
			}
			defer f.Close()
			return dashboard.Render(bar, f)
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(dashboard.ChartDaily), "chart type: daily, period or grade")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "chart.html", "HTML file to write")
	return cmd
}

// solveForDashboard loads and solves path, returning the request
// alongside the driver's result so dashboard verbs can analyze the
// assignments without a separate solve step.
func solveForDashboard(path string) (*domain.ScheduleRequest, driver.Result, error) {
	req, cfg, err := config.Load(path)
	if err != nil {
		return nil, driver.Result{}, err
	}
	d, err := driver.NewBuilder(req).WithConfig(cfg).Build()
	if err != nil {
		return nil, driver.Result{}, err
	}
	logger := klog.Background()
	ctx := telemetry.WithLogger(context.Background(), logger)
	result, err := d.Solve(ctx)
	if err != nil {
		return nil, driver.Result{}, err
	}
	return req, result, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
