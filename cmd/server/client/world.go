package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/handlers/session/v1alpha1"
)

var (
	sceneLocation string
	sceneTime     string
	sceneWeather  string
	sceneNPCs     []string

	historyOffset int
	historyLimit  int
)

var sceneCmd = &cobra.Command{
	Use:   "scene [name]",
	Short: "Change the scene",
	Long: `Change the scene. Flags that are not given keep their current value.
Each --npc is id:name[:disposition]; giving any --npc replaces the NPC list.`,
	Args: cobra.ExactArgs(1),
	RunE: changeScene,
}

var questCmd = &cobra.Command{
	Use:   "quest [quest-id] [active|completed|removed]",
	Short: "Change a quest's status",
	Args:  cobra.ExactArgs(2),
	RunE:  updateQuest,
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the session's world state",
	RunE:  getWorldState,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the session ledger, newest first",
	RunE:  listHistory,
}

func init() {
	sceneCmd.Flags().StringVar(&sceneLocation, "location", "", "Location")
	sceneCmd.Flags().StringVar(&sceneTime, "time", "", "Time of day")
	sceneCmd.Flags().StringVar(&sceneWeather, "weather", "", "Weather")
	sceneCmd.Flags().StringArrayVar(&sceneNPCs, "npc", nil, "NPC as id:name[:disposition]")

	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Entries to skip")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Entries per page")
}

func changeScene(cmd *cobra.Command, args []string) error {
	req := &v1alpha1.ChangeSceneRequest{SessionID: sessionID, Scene: args[0]}
	if cmd.Flags().Changed("location") {
		req.Location = &sceneLocation
	}
	if cmd.Flags().Changed("time") {
		req.TimeOfDay = &sceneTime
	}
	if cmd.Flags().Changed("weather") {
		req.Weather = &sceneWeather
	}
	for _, raw := range sceneNPCs {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 {
			return fmt.Errorf("npc %q must be id:name[:disposition]", raw)
		}
		npc := entities.NPC{ID: parts[0], Name: parts[1]}
		if len(parts) == 3 {
			npc.Disposition = parts[2]
		}
		req.NPCs = append(req.NPCs, npc)
	}

	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.ChangeScene(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to change scene: %w", err)
	}
	return printJSON(resp.State)
}

func updateQuest(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.UpdateQuest(ctx, &v1alpha1.UpdateQuestRequest{
		SessionID: sessionID,
		QuestID:   args[0],
		Status:    entities.QuestStatus(args[1]),
	})
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}

	if resp.Entry == nil {
		fmt.Println("Quest already has that status")
		return nil
	}
	fmt.Printf("Active quests: %v\n", resp.State.ActiveQuestIDs)
	fmt.Printf("Completed quests: %v\n", resp.State.CompletedQuestIDs)
	return nil
}

func getWorldState(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.GetWorldState(ctx, &v1alpha1.GetWorldStateRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to get world state: %w", err)
	}
	return printJSON(resp.State)
}

func listHistory(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.ListHistory(ctx, &v1alpha1.ListHistoryRequest{
		SessionID: sessionID,
		Offset:    historyOffset,
		Limit:     historyLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	for _, entry := range resp.Entries {
		fmt.Printf("#%-4d %s  %-15s %s\n",
			entry.Sequence, entry.Timestamp.Format("15:04:05"), entry.Kind(), entry.ActorID)
	}
	fmt.Printf("\n%d of %d entries", len(resp.Entries), resp.Total)
	if resp.HasMore {
		fmt.Printf(", next page at --offset %d", resp.NextOffset)
	}
	fmt.Println()
	return nil
}
