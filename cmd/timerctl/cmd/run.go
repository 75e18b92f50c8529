package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/psantana5/timerguard/pkg/deadline"
	"github.com/psantana5/timerguard/pkg/metrics"
	"github.com/psantana5/timerguard/pkg/wait"
)

// Exit code for a fired deadline, matching coreutils timeout(1).
const timeoutExitCode = 124

var (
	runTimeout     time.Duration
	runMessage     string
	runSuppress    bool
	runMinDuration time.Duration
	runMetricsOut  string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command under timing guards",
	Long: `Run executes a command under an upper-bound deadline and, optionally, a
minimum-duration floor.

If the command outlives the deadline it is killed and timerctl exits with
code 124; with --suppress the timeout is silent and timerctl exits 0. With
--min-duration, timerctl does not return before the floor has elapsed even
if the command finishes (or fails) early. With --metrics-out the run's
timing and timeout count are written as a Prometheus text snapshot.

Example:
  timerctl run --timeout 30s -- ffprobe input.mp4
  timerctl run --timeout 5s --suppress -- ./flaky-healthcheck.sh
  timerctl run --min-duration 2s -- ./check-credentials.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGuarded,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Deadline for the command (default from config, required)")
	runCmd.Flags().StringVar(&runMessage, "message", "", "Message reported when the deadline fires")
	runCmd.Flags().BoolVar(&runSuppress, "suppress", false, "Silently stop the command at the deadline instead of failing")
	runCmd.Flags().DurationVar(&runMinDuration, "min-duration", 0, "Do not return before this duration has elapsed")
	runCmd.Flags().StringVar(&runMetricsOut, "metrics-out", "", "Write a Prometheus text snapshot to this file")

	runCmd.SilenceUsage = true
}

func runGuarded(cmd *cobra.Command, args []string) error {
	if runTimeout == 0 {
		runTimeout = viper.GetDuration("default_timeout")
	}
	if runMessage == "" {
		runMessage = viper.GetString("timeout_message")
	}
	if runTimeout == 0 {
		return fmt.Errorf("no deadline given: set --timeout or default_timeout in the config")
	}

	opts := []deadline.Option{}
	if runMessage != "" {
		opts = append(opts, deadline.WithMessage(runMessage))
	}
	if runSuppress {
		opts = append(opts, deadline.WithSuppress())
	}
	guard, err := deadline.New(runTimeout, opts...)
	if err != nil {
		return fmt.Errorf("invalid deadline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.WithField("command", args[0])
	log.Debug("Starting guarded run", map[string]interface{}{
		"timeout":      runTimeout.String(),
		"min_duration": runMinDuration.String(),
	})

	execute := func() error {
		return guard.Run(ctx, func(rctx context.Context) error {
			child := exec.CommandContext(rctx, args[0], args[1:]...)
			child.Stdin = os.Stdin
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			return child.Run()
		})
	}

	// The floor wraps the deadline so the minimum holds even when the
	// command times out or fails. A zero floor never sleeps, so the
	// waiter always wraps and its measurement always feeds the recorder.
	recorder := metrics.NewRecorder()
	waiter, werr := wait.NewWaiter(runMinDuration, wait.WithObserver(recorder))
	if werr != nil {
		return fmt.Errorf("invalid minimum duration: %w", werr)
	}
	execute = waiter.Wrap(execute)

	err = execute()
	observeRunOutcome(recorder, err)

	// The snapshot is written before any exit below so timed-out and
	// failed runs still leave their metrics behind.
	if runMetricsOut != "" {
		if serr := writeMetricsSnapshot(recorder, runMetricsOut); serr != nil {
			logger.Error("Failed to write metrics snapshot", map[string]interface{}{"error": serr.Error()})
		}
	}

	switch {
	case err == nil:
		return nil
	case deadline.IsTimeout(err):
		log.Warn("Deadline fired", map[string]interface{}{"timeout": runTimeout.String()})
		fmt.Fprintf(os.Stderr, "timerctl: %v\n", err)
		os.Exit(timeoutExitCode)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
	}
	return err
}

// observeRunOutcome feeds a guarded run's result into the recorder. Only
// fired deadlines count as timeouts; command failures and interrupts do not.
func observeRunOutcome(recorder *metrics.Recorder, err error) {
	if deadline.IsTimeout(err) {
		recorder.ObserveTimeout()
	}
}
