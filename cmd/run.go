package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"retest.dev/pkg/retest/internal/adapter"
	"retest.dev/pkg/retest/internal/controller"
	"retest.dev/pkg/retest/internal/domain"
	m "retest.dev/pkg/retest/internal/model"
)

var runPackageFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [CODE_ROOT TEST_ROOT]",
		Short: "Load the code root and run the full suite once",
		Long: `One-shot version of the bootstrap phase: load everything under the
code root into a fresh environment, run the whole test root against it,
print the summary and exit non-zero if the run failed.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&runPackageFlag, packageFlagName, "p", false, "resolve roots from the enclosing Go module")

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	codeRoot, testRoot, err := resolveRoots(args, runPackageFlag)
	if err != nil {
		return err
	}

	loader := adapter.NewLocalCodeLoaderAdapter(viper.GetStringSlice(loadCommandKey), runEnv(), runTimeout())
	runner := adapter.NewLocalTestRunnerAdapter(viper.GetStringSlice(testCommandKey), runEnv(), runTimeout())

	// A one-shot run has no session to dashboard; plain output fits
	// both terminals and CI.
	ui := controller.NewSimpleUI(cmd.OutOrStdout())

	loop := newLoop(
		domain.LoopConfig{
			CodeRoot: codeRoot,
			TestRoot: testRoot,
			Reports:  m.Path(viper.GetString(outputFlagName)),
		},
		fsAdapter,
		nil, // no notifier: RunOnce never watches
		loader,
		runner,
		reportStore,
		ui,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := loop.RunOnce(ctx)
	if err != nil {
		return err
	}

	if report.Failed() {
		return fmt.Errorf("run failed")
	}

	return nil
}
