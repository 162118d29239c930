package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newGroupsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List group rosters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			b, handles, err := openHandles(ctx, flags)
			if err != nil {
				return err
			}
			defer b.Close()

			groups, err := handles.Store.Groups(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSUBJECT\tMEMBERS\tANNOUNCE")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\n",
					truncate(g.ID, 40), truncate(g.Subject, 32), len(g.Participants), g.Announce)
			}
			return w.Flush()
		},
	}
}
