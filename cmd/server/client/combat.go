package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/handlers/session/v1alpha1"
)

var combatants []string

var startCombatCmd = &cobra.Command{
	Use:   "start-combat",
	Short: "Start combat with the given participants",
	Long: `Start combat. Each --entry is id:name:initiative[:player]; entries
without a player are NPCs. Example:

  start-combat --entry char-1:Aria:18:alice --entry gob-1:Goblin:12`,
	RunE: startCombat,
}

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "End the current turn",
	RunE:  advanceTurn,
}

var endCombatCmd = &cobra.Command{
	Use:   "end-combat",
	Short: "End combat and print the summary",
	RunE:  endCombat,
}

func init() {
	startCombatCmd.Flags().StringArrayVar(&combatants, "entry", nil, "Participant as id:name:initiative[:player]")
	_ = startCombatCmd.MarkFlagRequired("entry")
}

// parseCombatant reads id:name:initiative[:player]
func parseCombatant(raw string) (entities.InitiativeEntry, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return entities.InitiativeEntry{}, fmt.Errorf("entry %q must be id:name:initiative[:player]", raw)
	}
	score, err := strconv.Atoi(parts[2])
	if err != nil {
		return entities.InitiativeEntry{}, fmt.Errorf("entry %q has a non-numeric initiative", raw)
	}

	entry := entities.InitiativeEntry{
		CharacterID:     parts[0],
		DisplayName:     parts[1],
		InitiativeScore: score,
		IsNPC:           true,
	}
	if len(parts) == 4 && parts[3] != "" {
		entry.ControllingPlayerID = parts[3]
		entry.IsNPC = false
	}
	return entry, nil
}

func startCombat(cmd *cobra.Command, args []string) error {
	entries := make([]entities.InitiativeEntry, 0, len(combatants))
	for _, raw := range combatants {
		entry, err := parseCombatant(raw)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.StartCombat(ctx, &v1alpha1.StartCombatRequest{SessionID: sessionID, Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to start combat: %w", err)
	}

	printTurnOrder(resp)
	return nil
}

func advanceTurn(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.AdvanceTurn(ctx, &v1alpha1.AdvanceTurnRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to advance turn: %w", err)
	}

	printTurnOrder(resp)
	return nil
}

func endCombat(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.EndCombat(ctx, &v1alpha1.EndCombatRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to end combat: %w", err)
	}

	fmt.Printf("Combat over after %d round(s)\n", resp.Summary.RoundsFought)
	fmt.Printf("Participants: %s\n", strings.Join(resp.Summary.Participants, ", "))
	return nil
}

func printTurnOrder(resp *v1alpha1.TurnResponse) {
	if resp.State == nil {
		return
	}
	fmt.Printf("\n⚔️  Round %d\n", resp.State.Combat.Round)
	for i, entry := range resp.State.Combat.Entries {
		marker := " "
		if i == resp.State.Combat.TurnIndex {
			marker = ">"
		}
		fmt.Printf("%s %2d  %-20s %s\n", marker, entry.InitiativeScore, entry.DisplayName, entry.CharacterID)
	}
}
