package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newChatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			b, handles, err := openHandles(ctx, flags)
			if err != nil {
				return err
			}
			defer b.Close()

			chats, err := handles.Store.Chats(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHAT\tLAST ACTIVITY\tUNREAD")
			for _, c := range chats {
				last := ""
				if c.ConversationTimestamp > 0 {
					last = time.Unix(c.ConversationTimestamp, 0).Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", truncate(c.ID, 40), last, c.UnreadCount)
			}
			return w.Flush()
		},
	}
}
