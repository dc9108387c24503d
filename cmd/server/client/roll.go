package client

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
	"github.com/KirkDiggler/rpg-tabletop/internal/handlers/session/v1alpha1"
)

var (
	rollCharacter string
	rollReason    string
	rollCategory  string
	rollCritRange int
	rollAdvantage bool
	rollDisadv    bool
	rollEndTurn   bool
)

var rollCmd = &cobra.Command{
	Use:   "roll [notation]",
	Short: "Roll dice in a session",
	Long: `Roll dice and record the result in the session ledger. Examples:

  roll 1d20+5 --character char-1 --category attack --reason longsword
  roll 1d20+2 --character char-1 --category save --dis
  roll 1d20 --character char-1 --end-turn`,
	Args: cobra.ExactArgs(1),
	RunE: rollDice,
}

var criticalCmd = &cobra.Command{
	Use:   "critical [notation]",
	Short: "Roll critical damage with doubled dice",
	Args:  cobra.ExactArgs(1),
	RunE:  rollCritical,
}

func init() {
	for _, cmd := range []*cobra.Command{rollCmd, criticalCmd} {
		cmd.Flags().StringVar(&rollCharacter, "character", "", "Character making the roll")
		cmd.Flags().StringVar(&rollReason, "reason", "", "Why the roll is made")
	}
	rollCmd.Flags().StringVar(&rollCategory, "category", string(rollpolicy.CategoryOther), "Roll category: attack, damage, skill, save or other")
	rollCmd.Flags().IntVar(&rollCritRange, "crit-range", 0, "Lowest natural d20 that counts as critical")
	rollCmd.Flags().BoolVar(&rollAdvantage, "adv", false, "Roll with advantage")
	rollCmd.Flags().BoolVar(&rollDisadv, "dis", false, "Roll with disadvantage")
	rollCmd.Flags().BoolVar(&rollEndTurn, "end-turn", false, "End the current turn after rolling")
}

func rollDice(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.RollDice(ctx, &v1alpha1.RollDiceRequest{
		SessionID:   sessionID,
		CharacterID: rollCharacter,
		Reason:      rollReason,
		Formula: rollpolicy.Formula{
			Notation:      args[0],
			Category:      rollpolicy.Category(rollCategory),
			CriticalRange: rollCritRange,
			Advantage:     rollAdvantage,
			Disadvantage:  rollDisadv,
		},
		EndTurn: rollEndTurn,
	})
	if err != nil {
		return fmt.Errorf("failed to roll dice: %w", err)
	}

	printResult(resp.Result)
	if resp.Turn != nil && resp.Turn.Current != nil {
		fmt.Printf("Next up: %s (round %d)\n", resp.Turn.Current.DisplayName, resp.Turn.State.Combat.Round)
	}
	return nil
}

func rollCritical(cmd *cobra.Command, args []string) error {
	client, cleanup, err := createSessionClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := requestContext()
	defer cancel()

	resp, err := client.RollCriticalDamage(ctx, &v1alpha1.RollCriticalDamageRequest{
		SessionID:   sessionID,
		CharacterID: rollCharacter,
		Reason:      rollReason,
		Formula:     rollpolicy.Formula{Notation: args[0], Category: rollpolicy.CategoryDamage},
	})
	if err != nil {
		return fmt.Errorf("failed to roll critical damage: %w", err)
	}

	printResult(resp.Result)
	return nil
}

func printResult(result rollpolicy.RollResult) {
	fmt.Printf("\n🎲 %s => %d\n", result.Notation, result.Total)
	fmt.Printf("  Evaluated: %s\n", result.Evaluated)
	fmt.Printf("  Individual Dice: %v\n", result.Rolls())
	if kept := result.Kept(); len(kept) != len(result.Rolls()) {
		fmt.Printf("  Kept: %v\n", kept)
	}
	if result.AdvantageRoll != nil {
		fmt.Printf("  %s: %d and %d\n", result.Mode, result.AdvantageRoll.Original, result.AdvantageRoll.Extra)
	}
	if result.IsCritical {
		fmt.Println("  Critical!")
	}
	if result.IsFumble {
		fmt.Println("  Fumble")
	}
}
