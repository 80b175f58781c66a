package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchsync/internal/config"
)

func newEmbyCommand(ctx *commandContext) *cobra.Command {
	embyCmd := &cobra.Command{
		Use:   "emby",
		Short: "Emby server utilities",
	}
	embyCmd.AddCommand(newEmbyUsersCommand(ctx))
	return embyCmd
}

// newEmbyUsersCommand lists Emby accounts so their ids can be copied into
// [users.<name>] entries. It only needs the [emby] section to be valid.
func newEmbyUsersCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "users",
		Short:       "List enabled Emby users and their ids",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.LoadUnvalidated(ctx.configPath())
			if err != nil {
				return err
			}
			if err := cfg.ValidateEmby(); err != nil {
				return err
			}

			users, err := newClientFactory(cfg).emby().Users(cmd.Context())
			if err != nil {
				return fmt.Errorf("list emby users: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, users)
			}
			if len(users) == 0 {
				fmt.Fprintln(out, "No enabled users")
				return nil
			}
			rows := make([][]string, 0, len(users))
			for _, user := range users {
				rows = append(rows, []string{user.Name, user.ID})
			}
			fmt.Fprintln(out, newTableOutput(out).render([]string{"Name", "ID"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
