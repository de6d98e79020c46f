package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"zest.dev/pkg/zest/internal/domain"
	m "zest.dev/pkg/zest/internal/model"
)

var viewFailedFlag bool

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View stored results",
		Long:  "View the results stored by previous runs in the results directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return currentWorkflow(cmd).View(cmd.Context(), domain.ViewArgs{
				Output:     m.Path(viper.GetString(outputConfigKey)),
				FailedOnly: viewFailedFlag,
			})
		},
	}

	cmd.Flags().BoolVar(&viewFailedFlag, failedFlagName, false, "show only runs that contain failures")

	return cmd
}

func init() {
	rootCmd.AddCommand(newViewCmd())
}
