package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"zest.dev/pkg/zest/internal/domain"
	m "zest.dev/pkg/zest/internal/model"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [match]",
		Short: "List the selected tests in execution order",
		Long:  listLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindSelectionFlags(cmd)
			seed := viper.GetUint64(seedConfigKey)

			return currentWorkflow(cmd).List(cmd.Context(), domain.ListArgs{
				Selection: selectionFromConfig(args),
				Seed:      seed,
				SeedSet:   seed != 0,
				Shuffle:   !viper.GetBool(disableShuffleConfigKey),
				Output:    m.Path(viper.GetString(outputConfigKey)),
			})
		},
	}

	configureSelectionFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(newListCmd())
}
