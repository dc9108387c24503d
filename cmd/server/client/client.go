// Package client provides commands that call a running session server
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/KirkDiggler/rpg-tabletop/internal/handlers/session/v1alpha1"
)

var (
	// Connection flags
	serverAddr string
	timeout    time.Duration
	userID     string
	sessionID  string
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for a running session server",
	Long:  `Client commands call the session service over gRPC as the user given by --user.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:50051", "gRPC server address")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	ClientCmd.PersistentFlags().StringVar(&userID, "user", "", "User ID sent with every request")
	ClientCmd.PersistentFlags().StringVar(&sessionID, "session", "", "Session ID")
	_ = ClientCmd.MarkPersistentFlagRequired("user")
	_ = ClientCmd.MarkPersistentFlagRequired("session")

	ClientCmd.AddCommand(rollCmd)
	ClientCmd.AddCommand(criticalCmd)

	// Combat commands
	ClientCmd.AddCommand(startCombatCmd)
	ClientCmd.AddCommand(advanceCmd)
	ClientCmd.AddCommand(endCombatCmd)

	// World commands
	ClientCmd.AddCommand(sceneCmd)
	ClientCmd.AddCommand(questCmd)
	ClientCmd.AddCommand(stateCmd)
	ClientCmd.AddCommand(historyCmd)
}

// createSessionClient creates a session service client
func createSessionClient() (*v1alpha1.SessionServiceClient, func(), error) {
	conn, err := grpc.NewClient(serverAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	cleanup := func() {
		_ = conn.Close() // nolint:errcheck // safe to ignore in cleanup
	}

	return v1alpha1.NewSessionServiceClient(conn), cleanup, nil
}

// requestContext carries the caller's identity and the request timeout
func requestContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return metadata.AppendToOutgoingContext(ctx, v1alpha1.UserIDHeader, userID), cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
