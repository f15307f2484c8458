package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kobbyadu/consulta/internal/hub"
	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/internal/reconciler"
	"github.com/kobbyadu/consulta/pkg/observability"
)

var (
	watchUserID string
	watchEmail  string
	watchRole   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream notifications for a user to the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchUserID == "" {
			return fmt.Errorf("--user is required")
		}

		identity := notify.Identity{
			UserID: watchUserID,
			Email:  watchEmail,
			Role:   notify.Role(watchRole),
		}
		logger := observability.NewLogger("consulta-cli")

		path, err := storePath()
		if err != nil {
			return err
		}
		store, err := reconciler.OpenSQLiteStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		rec := reconciler.New(identity, store, logger)
		unsubscribe := rec.Subscribe(func(n reconciler.Notification) {
			fmt.Printf("\n[%s] %s\n> %s\n", n.CreatedAt, n.Type, n.Message)
		})
		defer unsubscribe()

		token, err := hub.IssueToken(viper.GetString("jwt_secret"), identity)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		client := hub.NewClient(hub.ClientConfig{
			URL:   viper.GetString("ws_url"),
			Token: token,
		}, logger)
		stop := client.Subscribe(hub.TypeNotification, rec.HandleRaw)
		defer stop()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("Watching notifications for %s (%d stored, %d unread). Ctrl-C to quit.\n",
			watchUserID, len(rec.Notifications()), rec.UnreadCount())

		err = client.Run(ctx)
		if errors.Is(err, hub.ErrRetriesExhausted) {
			fmt.Println("Realtime connection unavailable. Check your appointments with `consulta list` or the web app.")
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchUserID, "user", "", "user id to watch")
	watchCmd.Flags().StringVar(&watchEmail, "email", "", "user email")
	watchCmd.Flags().StringVar(&watchRole, "role", "student", "user role (student or faculty)")
	rootCmd.AddCommand(watchCmd)
}
