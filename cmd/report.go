package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"retest.dev/pkg/retest/internal/controller"
	m "retest.dev/pkg/retest/internal/model"
)

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the most recent run report",
		Long:  "Show the snapshot of the most recent run from the reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			reportsPath := m.Path(viper.GetString(outputFlagName))

			report, err := reportStore.LoadLatest(reportsPath)
			if err != nil {
				return err
			}

			ui := controller.NewSimpleUI(cmd.OutOrStdout())

			reporter := ui.Fresh()
			for _, result := range report.Results {
				if result.Status != m.Passed {
					reporter.Record(result)
				}
			}

			ui.RunCompleted(report)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
