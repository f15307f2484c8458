package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/internal/reconciler"
	"github.com/kobbyadu/consulta/pkg/observability"
)

// openLocalList loads the stored notification list without a live
// connection. The identity only matters for incoming events, so a blank
// one is fine here.
func openLocalList() (*reconciler.Reconciler, func(), error) {
	path, err := storePath()
	if err != nil {
		return nil, nil, err
	}
	store, err := reconciler.OpenSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger("consulta-cli")
	rec := reconciler.New(notify.Identity{}, store, logger)
	return rec, func() { store.Close() }, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, closeStore, err := openLocalList()
		if err != nil {
			return err
		}
		defer closeStore()

		items := rec.Notifications()
		if len(items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}
		for _, n := range items {
			marker := " "
			if !n.IsRead {
				marker = "*"
			}
			fmt.Printf("%s [%s] %s  %s\n", marker, n.CreatedAt, n.Type, n.Message)
		}
		fmt.Printf("\n%d total, %d unread\n", len(items), rec.UnreadCount())
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark all stored notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, closeStore, err := openLocalList()
		if err != nil {
			return err
		}
		defer closeStore()
		rec.MarkAllAsRead()
		fmt.Println("All notifications marked as read.")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, closeStore, err := openLocalList()
		if err != nil {
			return err
		}
		defer closeStore()
		rec.ClearAll()
		fmt.Println("Notifications cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(clearCmd)
}
