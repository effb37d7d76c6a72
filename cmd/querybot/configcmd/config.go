package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/querybot/cmd/querybot/session"
)

const configLongDesc string = `Print the effective configuration as TOML.

Values are resolved in order: built-in defaults, the config file, a .env
file, environment variables (QUERYBOT_BASE_URL, QUERYBOT_TIMEOUT,
QUERYBOT_DEBUG, QUERYBOT_LOG_FILE, QUERYBOT_GLAMOUR_STYLE, NO_COLOR), then
flags.

Examples:
  querybot config
  querybot config > ~/.querybot/config.toml
  querybot config path`

const configShortDesc string = "Show the effective configuration"

type configCommander struct {
	opts session.Options
}

func NewConfigCmd() *cobra.Command {
	cmder := &configCommander{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.show(cmd)
		},
	}
	cmder.opts.Bind(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.path(cmd)
		},
	})

	return cmd
}

func (c *configCommander) show(cmd *cobra.Command) error {
	cfg, _, err := c.opts.LoadConfig()
	if err != nil {
		return err
	}
	return cfg.Encode(cmd.OutOrStdout())
}

func (c *configCommander) path(cmd *cobra.Command) error {
	path, err := c.opts.ResolvePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
