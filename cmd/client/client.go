// Package main provides a command-line client that follows a session's live
// events
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-tabletop/internal/broadcast"
)

var (
	serverAddr string
	timeout    time.Duration
	raw        bool
)

var rootCmd = &cobra.Command{
	Use:   "rpg-watch",
	Short: "Follow live events for tabletop sessions",
}

var watchCmd = &cobra.Command{
	Use:   "watch [session_id]",
	Short: "Print every event broadcast for a session until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		u := url.URL{Scheme: "ws", Host: serverAddr, Path: "/sessions/" + url.PathEscape(args[0]) + "/events"}

		dialer := websocket.Dialer{HandshakeTimeout: timeout}
		conn, _, err := dialer.Dial(u.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer func() {
			if err := conn.Close(); err != nil {
				log.Printf("Failed to close connection: %v", err)
			}
		}()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		go func() {
			<-interrupt
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		}()

		fmt.Printf("Watching %s\n", u.String())
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return fmt.Errorf("connection lost: %w", err)
			}
			if err := printEvent(data); err != nil {
				log.Printf("Skipping malformed event: %v", err)
			}
		}
	},
}

func printEvent(data []byte) error {
	if raw {
		fmt.Println(string(data))
		return nil
	}

	var event broadcast.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}

	output, err := json.MarshalIndent(event.Payload, "  ", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %s\n  %s\n", event.SentAt.Format(time.TimeOnly), event.Type, output)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:8080", "Event server address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection timeout")
	watchCmd.Flags().BoolVar(&raw, "raw", false, "Print events exactly as received")

	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
