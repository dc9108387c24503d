package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
)

// Scans every session ledger in Redis and reports entries that no longer
// decode, sequences with gaps, and state documents that fail to parse.
func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL:", err)
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	fmt.Println("Connected to Redis:", redisURL)
	fmt.Println("Scanning session ledgers...")

	iter := client.Scan(ctx, 0, "session:*:ledger", 0).Iterator()

	var problems []string
	var checked int

	for iter.Next(ctx) {
		key := iter.Val()
		checked++
		problems = append(problems, checkLedger(ctx, client, key)...)

		stateKey := strings.TrimSuffix(key, ":ledger") + ":state"
		problems = append(problems, checkState(ctx, client, stateKey)...)
	}

	if err := iter.Err(); err != nil {
		log.Fatal("Error during scan:", err)
	}

	fmt.Printf("\nChecked %d ledgers, found %d problems\n", checked, len(problems))
	for _, p := range problems {
		fmt.Printf("  ✗ %s\n", p)
	}
	if len(problems) > 0 {
		os.Exit(1)
	}
}

func checkLedger(ctx context.Context, client *redis.Client, key string) []string {
	raw, err := client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return []string{fmt.Sprintf("%s: failed to read: %v", key, err)}
	}

	var problems []string
	for i, item := range raw {
		var entry entities.LedgerEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			problems = append(problems, fmt.Sprintf("%s[%d]: does not decode: %v", key, i, err))
			continue
		}
		if want := int64(i + 1); entry.Sequence != want {
			problems = append(problems, fmt.Sprintf("%s[%d]: sequence %d, expected %d", key, i, entry.Sequence, want))
		}
	}
	return problems
}

func checkState(ctx context.Context, client *redis.Client, key string) []string {
	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		// Rolls alone never write a state document
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("%s: failed to read: %v", key, err)}
	}

	var state entities.WorldState
	if err := json.Unmarshal(data, &state); err != nil {
		return []string{fmt.Sprintf("%s: does not decode: %v", key, err)}
	}
	if state.Combat.IsActive() && state.Combat.Current() == nil {
		return []string{fmt.Sprintf("%s: active combat with turn index %d of %d",
			key, state.Combat.TurnIndex, len(state.Combat.Entries))}
	}
	return nil
}
