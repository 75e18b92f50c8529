package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/timerguard/pkg/metrics"
	"github.com/psantana5/timerguard/pkg/wait"
)

var (
	measureRuns       int
	measureMetricsOut string
	measureListen     string
)

var measureCmd = &cobra.Command{
	Use:   "measure [flags] -- <command> [args...]",
	Short: "Measure command runtimes with a stopwatch guard",
	Long: `Measure runs a command repeatedly under a stopwatch guard and reports the
measured runtimes. Failed runs are still measured and reported.

Results print as a table by default, or as json/yaml with --output. With
--metrics-out the measurements are also written as a Prometheus text
exposition snapshot; with --listen they are served live at /metrics for the
duration of the run.

Example:
  timerctl measure --runs 10 -- ffprobe input.mp4
  timerctl measure --runs 100 --output json -- ./bench.sh
  timerctl measure --runs 50 --listen :9105 -- curl -s https://example.test/health`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMeasure,
}

func init() {
	rootCmd.AddCommand(measureCmd)

	measureCmd.Flags().IntVar(&measureRuns, "runs", 1, "Number of times to run the command")
	measureCmd.Flags().StringVar(&measureMetricsOut, "metrics-out", "", "Write a Prometheus text snapshot to this file")
	measureCmd.Flags().StringVar(&measureListen, "listen", "", "Serve /metrics on this address while measuring")

	measureCmd.SilenceUsage = true
}

type runResult struct {
	Run     int     `json:"run" yaml:"run"`
	Runtime float64 `json:"runtime_seconds" yaml:"runtime_seconds"`
	OK      bool    `json:"ok" yaml:"ok"`
	Error   string  `json:"error,omitempty" yaml:"error,omitempty"`
}

type measureReport struct {
	Command []string       `json:"command" yaml:"command"`
	Runs    []runResult    `json:"runs" yaml:"runs"`
	Summary runtimeSummary `json:"summary" yaml:"summary"`
}

type runtimeSummary struct {
	Count int     `json:"count" yaml:"count"`
	Min   float64 `json:"min_seconds" yaml:"min_seconds"`
	Max   float64 `json:"max_seconds" yaml:"max_seconds"`
	Mean  float64 `json:"mean_seconds" yaml:"mean_seconds"`
}

func runMeasure(cmd *cobra.Command, args []string) error {
	if measureRuns < 1 {
		return fmt.Errorf("--runs must be at least 1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	sw := wait.NewStopwatch(wait.WithObserver(recorder))

	var srv *http.Server
	if measureListen != "" {
		srv = recorder.NewServer(measureListen)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", map[string]interface{}{"error": err.Error()})
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()
		logger.Info("Serving metrics", map[string]interface{}{"addr": measureListen})
	}

	results := make([]runResult, 0, measureRuns)
	for i := 0; i < measureRuns; i++ {
		if ctx.Err() != nil {
			logger.Warn("Measurement interrupted", map[string]interface{}{"completed": i})
			break
		}

		err := sw.Do(func() error {
			// Command output is discarded; only timing matters here
			child := exec.CommandContext(ctx, args[0], args[1:]...)
			child.Stderr = os.Stderr
			return child.Run()
		})

		runtime, _ := sw.Stats().LastRuntime()
		res := runResult{Run: i + 1, Runtime: runtime.Seconds(), OK: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	if measureMetricsOut != "" {
		if err := writeMetricsSnapshot(recorder, measureMetricsOut); err != nil {
			return err
		}
	}

	report := measureReport{
		Command: args,
		Runs:    results,
		Summary: summarize(sw.Stats().History()),
	}

	if isTableOutput() {
		printMeasureTable(report)
		return nil
	}
	return printStructured(report)
}

func summarize(history []time.Duration) runtimeSummary {
	s := runtimeSummary{Count: len(history)}
	if len(history) == 0 {
		return s
	}
	min, max, total := history[0], history[0], time.Duration(0)
	for _, d := range history {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		total += d
	}
	s.Min = min.Seconds()
	s.Max = max.Seconds()
	s.Mean = (total / time.Duration(len(history))).Seconds()
	return s
}

func printMeasureTable(report measureReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Run", "Runtime", "Status")

	for _, res := range report.Runs {
		status := "ok"
		if !res.OK {
			status = res.Error
		}
		table.Append(fmt.Sprintf("%d", res.Run), fmt.Sprintf("%.4fs", res.Runtime), status)
	}
	table.Render()

	fmt.Printf("\n%d runs: min %.4fs / mean %.4fs / max %.4fs\n",
		report.Summary.Count, report.Summary.Min, report.Summary.Mean, report.Summary.Max)
}

func writeMetricsSnapshot(recorder *metrics.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer f.Close()

	if err := recorder.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write metrics snapshot: %w", err)
	}
	return nil
}
