package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"retest.dev/pkg/retest/internal/adapter"
	"retest.dev/pkg/retest/internal/domain"
	m "retest.dev/pkg/retest/internal/model"
)

var watchPackageFlag bool
var watchDebounceFlag int

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

const watchLongDescription = `Bootstrap (load all code, run the full suite once), then watch both
roots and rerun on every change batch until interrupted.

With --package the roots are resolved from the enclosing Go module:
the module root is the code root and its tests directory (paths.tests,
default "tests") is the test root. Configured run.env variables are
applied around every load and run.`

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [CODE_ROOT TEST_ROOT]",
		Short: "Watch the roots and rerun affected tests",
		Long:  watchLongDescription,
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}

	configureWatchFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func configureWatchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&watchPackageFlag, packageFlagName, "p", false, "resolve roots from the enclosing Go module")
	cmd.Flags().IntVarP(&watchDebounceFlag, debounceFlagName, "d", viper.GetInt(debounceConfigKey), "debounce window for change batches in milliseconds")
	bindFlagToConfig(cmd.Flags().Lookup(debounceFlagName), debounceConfigKey)
}

func runWatch(cmd *cobra.Command, args []string) error {
	codeRoot, testRoot, err := resolveRoots(args, watchPackageFlag)
	if err != nil {
		return err
	}

	excludes, err := compileExcludes()
	if err != nil {
		return err
	}

	debounce := time.Duration(viper.GetInt(debounceConfigKey)) * time.Millisecond
	notifier := adapter.NewFSNotifyAdapter(fsAdapter, debounce, excludes)
	loader := adapter.NewLocalCodeLoaderAdapter(viper.GetStringSlice(loadCommandKey), runEnv(), runTimeout())
	runner := adapter.NewLocalTestRunnerAdapter(viper.GetStringSlice(testCommandKey), runEnv(), runTimeout())

	ui, err := newUI(viper.GetString(reporterFlagName), os.Stdout)
	if err != nil {
		return err
	}

	loop := newLoop(
		domain.LoopConfig{
			CodeRoot: codeRoot,
			TestRoot: testRoot,
			Reports:  m.Path(viper.GetString(outputFlagName)),
		},
		fsAdapter,
		notifier,
		loader,
		runner,
		reportStore,
		ui,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ui.Start(ctx); err != nil {
		return err
	}

	defer ui.Close()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		// However the loop ends, release the UI-quit goroutine too.
		defer stop()

		return loop.Run(ctx)
	})

	group.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-ui.Done():
			// The user quit the dashboard; wind the loop down too.
			stop()
			return nil
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
