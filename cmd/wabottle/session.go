package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the session's credential summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			b, handles, err := openHandles(ctx, flags)
			if err != nil {
				return err
			}
			defer b.Close()

			creds, err := handles.Auth.Creds(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Session:        %s\n", handles.Store.Session().Key)
			fmt.Printf("Registered:     %t\n", creds.Registered)
			fmt.Printf("RegistrationID: %d\n", creds.RegistrationID)
			fmt.Printf("Platform:       %s\n", orDash(creds.Platform))
			if creds.Me != nil {
				fmt.Printf("Account:        %s\n", creds.Me.ID)
				if creds.Me.LID != "" {
					fmt.Printf("Linked ID:      %s\n", creds.Me.LID)
				}
			}
			fmt.Printf("Connection:     %s\n", handles.Store.Connection())
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
