package main

import (
	"github.com/spf13/cobra"

	"github.com/vocos/attendance-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Flags.JSON {
		shown := *cc.Cfg
		if shown.ClientSecret != "" {
			shown.ClientSecret = "********"
		}

		return printJSON(cmd.OutOrStdout(), shown)
	}

	return config.RenderEffective(cc.Cfg, cmd.OutOrStdout())
}
