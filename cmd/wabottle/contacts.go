package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newContactsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			b, handles, err := openHandles(ctx, flags)
			if err != nil {
				return err
			}
			defer b.Close()

			contacts, err := handles.Store.Contacts(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNOTIFY\tVERIFIED")
			for _, c := range contacts {
				name := c.Name
				if name == "" {
					name = c.Notify
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					truncate(c.ID, 40), truncate(name, 28), truncate(c.Notify, 20), c.VerifiedName)
			}
			return w.Flush()
		},
	}
}
