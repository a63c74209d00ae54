package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p4forge/p4forge/pkg/errdefs"
	"github.com/p4forge/p4forge/pkg/profile"
)

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Work with declarative build profiles",
		Long: `A profile document captures one build configuration exactly. Applying a
profile and answering the interactive wizard with the same values produce
identical configurations; both go through the same resolver and validation.`,
	}

	cmd.AddCommand(newProfileApplyCommand())
	cmd.AddCommand(newProfileCreateCommand())
	cmd.AddCommand(newProfileDescribeCommand())

	return cmd
}

func newProfileApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <profile.yaml>",
		Short: "Apply a profile as the workspace configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			doc, err := profile.Load(args[0])
			if err != nil {
				return err
			}
			cfg, err := profile.Apply(doc, a.resolver, a.defaults())
			if err != nil {
				return err
			}
			if err := a.saveConfiguration(cfg); err != nil {
				return err
			}

			a.logger.Info().
				Str("profile", args[0]).
				Strs("packages", cfg.Packages).
				Msg("profile applied")
			return nil
		},
	}
}

func newProfileCreateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a profile from the workspace configuration",
		Long: `Write the current workspace configuration as a profile document. Applying
the created profile reproduces the configuration field for field.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			if _, err := os.Stat(a.settings.ProfilePath); os.IsNotExist(err) {
				return errdefs.InvalidConfiguration(
					"no workspace configuration: run configure, interactive, or profile apply first", err)
			}
			cfg, err := a.loadConfiguration()
			if err != nil {
				return err
			}

			doc := profile.Create(cfg)
			if output == "" || output == "-" {
				data, err := doc.Encode()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := doc.Save(output); err != nil {
				return err
			}
			a.logger.Info().Str("profile", output).Msg("profile written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "profile file to write (default: stdout)")

	return cmd
}

func newProfileDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [profile.yaml]",
		Short: "Summarize a profile document",
		Long: `Print a human-readable summary of a profile document. Without an
argument, the workspace profile is described.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current

			path := a.settings.ProfilePath
			if len(args) == 1 {
				path = args[0]
			}
			doc, err := profile.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), profile.Describe(doc))
			return nil
		},
	}
}
