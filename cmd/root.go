// Package cmd provides the root command and CLI setup for zest.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"zest.dev/pkg/zest/internal/adapter"
	"zest.dev/pkg/zest/internal/controller"
	"zest.dev/pkg/zest/internal/domain"
	m "zest.dev/pkg/zest/internal/model"
)

// workflow is built on first use so the UI sees the parsed verbosity.
var workflow domain.Workflow

var resultsOutputDirFlag string
var verboseFlag int

const selectionHelp = `Selection:
  zest run parser          run tests whose full name contains "parser"
  zest run -x slow         skip tests whose full name contains "slow"
  zest run -g fast         run tests tagged with the "fast" group
  zest run --allow a.b.:c  run the subtree under "a.b" and the test "c"
  zest run --allow __failed__
                           rerun the tests that failed in the stored results`

const rootLongDescription = `Zest runs hierarchical test suites registered with the zest package.
Suites nest, share before/after hooks, install scoped mocks and run their
children in a reproducible random order.

` + selectionHelp

const runLongDescription = `Run the registered suites (optionally only those matching a name).

` + selectionHelp

const listLongDescription = `List the tests that a run with the same selection would execute.

` + selectionHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func init() {
	configureRootFlags(rootCmd)
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zest",
		Short: "Hierarchical test runner",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger("", viper.GetInt(verboseConfigKey) >= controller.VerboseTrace)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&resultsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputConfigKey),
			"directory for stored results",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputConfigKey)

	cmd.PersistentFlags().IntVarP(&verboseFlag, verboseFlagName, "v", viper.GetInt(verboseConfigKey), "verbosity: 0 quiet, 1 dots, 2 one line per test")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), verboseConfigKey)
}

// configureSelectionFlags registers the flags shared by run and list.
// They are bound to viper by bindSelectionFlags when the command runs,
// since both commands feed the same keys.
func configureSelectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringP(excludeFlagName, "x", viper.GetString(excludeConfigKey), "skip tests whose full name contains this string")
	flags.StringSliceP(groupsFlagName, "g", viper.GetStringSlice(groupsConfigKey), "run only tests tagged with one of these groups")
	flags.StringSlice(excludeGroupsFlagName, viper.GetStringSlice(excludeGroupsConfigKey), "skip tests tagged with one of these groups")
	flags.String(allowFlagName, viper.GetString(allowConfigKey), "colon separated full names allowed to run (__all__, __failed__)")
	flags.StringSlice(bypassSkipFlagName, viper.GetStringSlice(bypassSkipConfigKey), "full names whose skip marker is ignored")
	flags.StringSlice(includeDirsFlagName, viper.GetStringSlice(includeDirsConfigKey), "accepted for compatibility, suites are found by registration")
	flags.Uint64(seedFlagName, viper.GetUint64(seedConfigKey), "shuffle seed, 0 draws a random one")
	flags.Bool(disableShuffleFlag, viper.GetBool(disableShuffleConfigKey), "run children in declaration order")
}

func bindSelectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	bindFlagToConfig(flags.Lookup(excludeFlagName), excludeConfigKey)
	bindFlagToConfig(flags.Lookup(groupsFlagName), groupsConfigKey)
	bindFlagToConfig(flags.Lookup(excludeGroupsFlagName), excludeGroupsConfigKey)
	bindFlagToConfig(flags.Lookup(allowFlagName), allowConfigKey)
	bindFlagToConfig(flags.Lookup(bypassSkipFlagName), bypassSkipConfigKey)
	bindFlagToConfig(flags.Lookup(includeDirsFlagName), includeDirsConfigKey)
	bindFlagToConfig(flags.Lookup(seedFlagName), seedConfigKey)
	bindFlagToConfig(flags.Lookup(disableShuffleFlag), disableShuffleConfigKey)
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

func currentWorkflow(cmd *cobra.Command) domain.Workflow {
	if workflow != nil {
		return workflow
	}

	fsAdapter := adapter.NewLocalFSAdapter()
	ui := controller.NewUI(cmd, controller.IsTTY(os.Stdout), viper.GetInt(verboseConfigKey))
	workflow = domain.NewWorkflow(fsAdapter, adapter.NewYAMLResultStore(fsAdapter), ui, domain.DefaultRegistry)

	return workflow
}

func selectionFromConfig(args []string) m.Selection {
	var match string
	if len(args) > 0 {
		match = args[0]
	}

	return m.Selection{
		Match:         match,
		Exclude:       viper.GetString(excludeConfigKey),
		Groups:        viper.GetStringSlice(groupsConfigKey),
		ExcludeGroups: viper.GetStringSlice(excludeGroupsConfigKey),
		Allow:         parseAllow(viper.GetString(allowConfigKey)),
		BypassSkip:    viper.GetStringSlice(bypassSkipConfigKey),
	}
}

func parseAllow(value string) []string {
	var allow []string

	for _, name := range strings.Split(value, ":") {
		name = strings.TrimSpace(name)
		if name != "" {
			allow = append(allow, name)
		}
	}

	return allow
}
