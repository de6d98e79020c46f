package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"zest.dev/pkg/zest/internal/domain"
	m "zest.dev/pkg/zest/internal/model"
)

var runPreviewFlag bool

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run [match]",
		Short:        "Run the registered test suites",
		Long:         runLongDescription,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindSelectionFlags(cmd)
			wf := currentWorkflow(cmd)
			seed := viper.GetUint64(seedConfigKey)
			shuffle := !viper.GetBool(disableShuffleConfigKey)
			output := m.Path(viper.GetString(outputConfigKey))

			if runPreviewFlag {
				return wf.List(cmd.Context(), domain.ListArgs{
					Selection: selectionFromConfig(args),
					Seed:      seed,
					SeedSet:   seed != 0,
					Shuffle:   shuffle,
					Output:    output,
				})
			}

			counts, err := wf.Run(cmd.Context(), domain.RunArgs{
				Selection: selectionFromConfig(args),
				Seed:      seed,
				SeedSet:   seed != 0,
				Shuffle:   shuffle,
				Parallel:  viper.GetInt(runParallelConfigKey),
				Output:    output,
				TmpRoot:   m.Path(viper.GetString(tmpRootConfigKey)),
			})
			if err != nil {
				return err
			}

			if counts.Failed() {
				return fmt.Errorf("%d of %d tests did not pass", counts.Fail+counts.Error, counts.Total())
			}

			return nil
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func configureRunFlags(cmd *cobra.Command) {
	configureSelectionFlags(cmd)

	cmd.Flags().IntP(runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of root suites run at once")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().String(tmpRootFlagName, viper.GetString(tmpRootConfigKey), "directory that holds per-test scratch directories")
	bindFlagToConfig(cmd.Flags().Lookup(tmpRootFlagName), tmpRootConfigKey)

	cmd.Flags().BoolVar(&runPreviewFlag, previewFlagName, false, "list the selected tests instead of running them")
}
