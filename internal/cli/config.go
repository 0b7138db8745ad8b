package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Config string
	Seed   int64
	Ticks  int64
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Resolve a CUE configuration against the built-in schema, apply flag
overrides and print the result as JSON. Without --config the defaults are
printed. The output is itself a valid configuration file.

Examples:
  chlamsim config
  chlamsim config --config culture.cue --seed 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE configuration file")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override the configured seed")
	cmd.Flags().Int64Var(&opts.Ticks, "ticks", 0, "override the configured number of ticks")

	return cmd
}

func runConfig(opts *ConfigOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd, opts.Config, opts.Seed, opts.Ticks)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(cfg)
	}

	data, err := cfg.JSON()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode config", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

