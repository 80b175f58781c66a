package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchsync/internal/catalog"
	"watchsync/internal/providerid"
)

func newParseCommand() *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:         "parse GUID [ALTERNATE...]",
		Short:       "Show the provider id extracted from a Plex GUID",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ref, err := providerid.Parse(args[0], args[1:], kind)
			if err != nil {
				if reason, ok := providerid.RejectionReason(err); ok {
					fmt.Fprintf(out, "rejected: %s\n", reason)
					return nil
				}
				return err
			}
			fmt.Fprintf(out, "provider: %s\nid: %s\nlookup: %s\n", ref.Provider, ref.ID, ref)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "movie", "Item kind (movie or show)")
	return cmd
}
