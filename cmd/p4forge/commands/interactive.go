package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/config"
	"github.com/p4forge/p4forge/pkg/interactive"
)

func newInteractiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Configure the workspace through the interactive wizard",
		Long: `Walk through the configuration questions in a fixed order, with every
default echoed before acceptance. The answers feed the same resolver and
validation as configure and profile apply, so the wizard and a profile
with the same values produce identical configurations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			elicitor := interactive.New(os.Stdin, cmd.OutOrStdout())
			overrides, err := elicitor.Run(a.defaults())
			if err != nil {
				return err
			}

			cfg, err := a.resolver.Resolve(a.defaults(), overrides, config.Overrides{})
			if err != nil {
				return err
			}
			if err := a.saveConfiguration(cfg); err != nil {
				return err
			}

			a.logger.Info().
				Strs("packages", cfg.Packages).
				Str("profile", a.settings.ProfilePath).
				Msg("configuration saved")
			return nil
		},
	}
}
