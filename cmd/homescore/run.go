package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	runForce bool
	runJSON  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monthly confidence score batch once and exit",
	Long: `Run the monthly confidence score batch once.

By default the run is skipped when the current period already has a
completed run or another process holds the run lock. --force scores every
property regardless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "Ignore the completed-period check and the run lock")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run summary as JSON")
}

func runBatch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()

	var sched *scheduler.Scheduler
	app := fx.New(
		coreModules(cfg),
		fx.Populate(&sched),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	var (
		summary scheduler.RunSummary
		ran     = true
		err     error
	)
	if runForce {
		summary, err = sched.RunMonthlyScoreCalculation(ctx)
	} else {
		summary, ran, err = sched.RunOnce(ctx)
	}
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintln(os.Stderr, "Run skipped: period already completed or lock held elsewhere")
		return nil
	}

	return reportRun(os.Stdout, summary, runJSON)
}

// reportRun writes the summary in the chosen format. The returned error, and
// so the exit status, depends only on the outcome.
func reportRun(w io.Writer, summary scheduler.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printRunSummary(w, summary)
	}
	return runOutcome(summary)
}

func runOutcome(summary scheduler.RunSummary) error {
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d properties failed", summary.Failed, summary.Total)
	}
	return nil
}

type printStyles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
}

func newPrintStyles() printStyles {
	return printStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func printRunSummary(w io.Writer, summary scheduler.RunSummary) {
	styles := newPrintStyles()

	fmt.Fprintln(w, styles.header.Render(fmt.Sprintf("Confidence score run %s", summary.Period)))
	fmt.Fprintln(w, styles.dim.Render(fmt.Sprintf("run %s, %s", summary.RunID, summary.Duration().Round(time.Millisecond))))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Properties: %d\n", summary.Total)
	fmt.Fprintf(w, "  %s\n", styles.ok.Render(fmt.Sprintf("Succeeded:  %d", summary.Succeeded)))
	if summary.Partial > 0 {
		fmt.Fprintf(w, "  %s\n", styles.warn.Render(fmt.Sprintf("Partial:    %d", summary.Partial)))
	}
	if summary.Failed > 0 {
		fmt.Fprintf(w, "  %s\n", styles.fail.Render(fmt.Sprintf("Failed:     %d", summary.Failed)))
	}
	if summary.Cancelled {
		fmt.Fprintf(w, "  %s\n", styles.warn.Render("Run was cancelled before every property was visited"))
	}

	if len(summary.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.header.Render("Failures"))
		for _, f := range summary.Failures {
			fmt.Fprintf(w, "  %s %s\n", f.PropertyID, styles.dim.Render(f.Reason))
		}
	}
}
