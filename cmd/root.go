// Package cmd provides the root command and CLI setup for retest.
package cmd

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"retest.dev/pkg/retest/internal/adapter"
	"retest.dev/pkg/retest/internal/controller"
	"retest.dev/pkg/retest/internal/domain"
	m "retest.dev/pkg/retest/internal/model"
)

// Shared dependencies, swapped out by tests.
var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore

// newLoop and newUI are indirections so command tests can substitute
// the loop and the session UI.
var newLoop = domain.NewLoop
var newUI = controller.NewUI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// reporterFlag selects the session UI (auto, simple, tui).
var reporterFlag string

// excludePatterns filters watched paths matching any of the regexes.
var excludePatterns []string

func init() {
	configureRootFlags(rootCmd)

	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewLocalReportStore()
}

const rootLongDescription = `Retest watches a code root and a test root and reruns the affected
tests as files change: a code change triggers a full reload and a full
suite run, a test-only change reruns exactly the changed test files,
and anything else is ignored.

Roots are given as positional arguments, or resolved from the enclosing
Go module with --package.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retest",
		Short: "Continuous test watcher",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for run report snapshots",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringVar(&reporterFlag, reporterFlagName, viper.GetString(reporterFlagName), "session reporter: auto, simple or tui")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(reporterFlagName), reporterFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude paths matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// resolveRoots turns command arguments (or the enclosing Go module in
// package mode) into validated, normalized watch roots. Any problem
// here is a fatal configuration error: it aborts before watching starts.
func resolveRoots(args []string, packageMode bool) (m.Path, m.Path, error) {
	var codeRoot, testRoot m.Path

	switch {
	case packageMode:
		if len(args) != 0 {
			return "", "", fmt.Errorf("--%s and positional roots are mutually exclusive", packageFlagName)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return "", "", fmt.Errorf("resolve working directory: %w", err)
		}

		projectRoot, err := fsAdapter.FindProjectRoot(m.Path(cwd))
		if err != nil {
			return "", "", fmt.Errorf("resolve package roots: %w", err)
		}

		codeRoot = projectRoot
		testRoot = m.Path(string(projectRoot) + string(os.PathSeparator) + viper.GetString(testsDirConfigKey))

	case len(args) == 2:
		codeRoot = m.Path(args[0])
		testRoot = m.Path(args[1])

	default:
		return "", "", fmt.Errorf("expected CODE_ROOT and TEST_ROOT arguments (or --%s)", packageFlagName)
	}

	code, err := normalizeRoot(codeRoot, "code root")
	if err != nil {
		return "", "", err
	}

	tests, err := normalizeRoot(testRoot, "test root")
	if err != nil {
		return "", "", err
	}

	return code, tests, nil
}

func normalizeRoot(root m.Path, label string) (m.Path, error) {
	info, err := fsAdapter.FileInfo(root)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", label, root, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%s %s is not a directory", label, root)
	}

	normalized, err := fsAdapter.Normalize(root)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", label, root, err)
	}

	return normalized, nil
}

// compileExcludes compiles the configured exclusion regexes, failing
// fast on an invalid pattern.
func compileExcludes() ([]*regexp.Regexp, error) {
	patterns := viper.GetStringSlice(excludeConfigKey)

	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}

// runEnv returns the configured KEY=VALUE pairs applied around every
// load and test run (the package variant's project variables).
func runEnv() []string {
	return viper.GetStringSlice(runEnvKey)
}

func runTimeout() time.Duration {
	return time.Duration(viper.GetInt64(runTimeoutKey)) * time.Second
}
