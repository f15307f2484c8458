package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/messaging"
)

var (
	sendAction  string
	sendBooking string
	sendUser    string
	sendTeacher string
	sendVenue   string
	sendWhen    string
	sendVia     string
)

// publishFunc hands one marshaled event to a broker.
type publishFunc func(ctx context.Context, key string, body []byte) error

// publishEvent validates and marshals the event, then publishes it keyed by
// booking id so ordering per booking is preserved on partitioned brokers.
func publishEvent(ctx context.Context, publish publishFunc, e *notify.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return publish(ctx, e.BookingID, body)
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Dispatch a test notification event through the service",
	Long: `Builds a notification event and injects it either through the
service's test endpoint (--via api, the default) or straight onto the
lifecycle event broker (--via rabbitmq or --via kafka), exercising the
same ingress path the booking service publishes on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendBooking == "" || sendUser == "" {
			return fmt.Errorf("--booking and --user are required")
		}

		event := notify.Event{
			Action:       notify.Action(sendAction),
			BookingID:    sendBooking,
			TargetUserID: sendUser,
			TeacherName:  sendTeacher,
			Venue:        sendVenue,
			Schedule:     sendWhen,
			EmittedAt:    time.Now().UTC(),
		}

		ctx := cmd.Context()
		switch sendVia {
		case "api":
			if err := sendOverAPI(&event); err != nil {
				return err
			}
		case "rabbitmq":
			if err := sendOverRabbit(ctx, &event); err != nil {
				return err
			}
		case "kafka":
			if err := sendOverKafka(ctx, &event); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown --via %q (api, rabbitmq, kafka)", sendVia)
		}

		fmt.Printf("Dispatched %s for booking %s to user %s via %s\n", sendAction, sendBooking, sendUser, sendVia)
		return nil
	},
}

func sendOverAPI(e *notify.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	url := viper.GetString("server_url") + "/api/v1/events/test"
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to reach notify service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("service refused event: %s", resp.Status)
	}
	return nil
}

func sendOverRabbit(ctx context.Context, e *notify.Event) error {
	client, err := messaging.NewRabbitClient(messaging.DefaultRabbitConfig(viper.GetString("rabbitmq_url")))
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer client.Close()

	queue := viper.GetString("event_queue")
	if _, err := client.DeclareQueue(queue); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return publishEvent(ctx, func(ctx context.Context, _ string, body []byte) error {
		return client.Publish(ctx, queue, body)
	}, e)
}

func sendOverKafka(ctx context.Context, e *notify.Event) error {
	brokers := viper.GetStringSlice("kafka_brokers")
	producer := messaging.NewKafkaProducer(brokers, viper.GetString("event_queue"))
	defer producer.Close()
	return publishEvent(ctx, producer.Publish, e)
}

func init() {
	sendCmd.Flags().StringVar(&sendAction, "action", "confirm", "event action (create, confirm, cancel, reminder_24h, ...)")
	sendCmd.Flags().StringVar(&sendBooking, "booking", "", "booking id")
	sendCmd.Flags().StringVar(&sendUser, "user", "", "target user id")
	sendCmd.Flags().StringVar(&sendTeacher, "teacher", "", "teacher display name")
	sendCmd.Flags().StringVar(&sendVenue, "venue", "", "venue")
	sendCmd.Flags().StringVar(&sendWhen, "schedule", "", "session start (RFC3339)")
	sendCmd.Flags().StringVar(&sendVia, "via", "api", "delivery path: api, rabbitmq or kafka")
	rootCmd.AddCommand(sendCmd)
}
