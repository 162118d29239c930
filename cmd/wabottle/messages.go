package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vspok/wabottle/internal/event"
	"github.com/vspok/wabottle/internal/store"
)

func newMessagesCmd(flags *rootFlags) *cobra.Command {
	var count int
	var before string
	var after string

	cmd := &cobra.Command{
		Use:   "messages <chat-jid>",
		Short: "List messages of a chat in stored order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if before != "" && after != "" {
				return fmt.Errorf("--before and --after are mutually exclusive")
			}

			ctx := context.Background()
			b, handles, err := openHandles(ctx, flags)
			if err != nil {
				return err
			}
			defer b.Close()

			chatJID := args[0]
			var cursor *store.Cursor
			if before != "" {
				cursor = &store.Cursor{Before: &event.MessageKey{RemoteJID: chatJID, ID: before}}
			} else if after != "" {
				cursor = &store.Cursor{After: &event.MessageKey{RemoteJID: chatJID, ID: after}}
			}

			msgs, err := handles.Store.LoadMessages(ctx, chatJID, count, cursor)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tFROM\tID\tSTATUS")
			for _, m := range msgs {
				from := m.Participant
				if m.FromMe {
					from = "me"
				} else if from == "" {
					from = m.PushName
				}
				ts := ""
				if m.Timestamp > 0 {
					ts = time.Unix(m.Timestamp, 0).Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", ts, truncate(from, 24), truncate(m.MsgID, 24), m.Status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&count, "count", 25, "number of messages to return")
	cmd.Flags().StringVar(&before, "before", "", "page backward from this message id")
	cmd.Flags().StringVar(&after, "after", "", "page forward from this message id")
	return cmd
}
