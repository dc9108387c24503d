package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-tabletop/internal/engine/dice"
	"github.com/KirkDiggler/rpg-tabletop/internal/engine/rollpolicy"
)

var (
	rollAdvantage    bool
	rollDisadvantage bool
	rollCategory     string
	rollCritRange    int
	rollSeed         uint64
	rollCritical     bool
)

var rollCmd = &cobra.Command{
	Use:   "roll [notation]",
	Short: "Roll dice locally without a server",
	Long: `Evaluate a dice formula with the same rules the server applies. Examples:

  roll 1d20+5 --category attack --adv
  roll 4d6kh3
  roll 2d6+3 --critical
  roll 1d20 --seed 42`,
	Args: cobra.ExactArgs(1),
	RunE: runRoll,
}

func init() {
	rollCmd.Flags().BoolVar(&rollAdvantage, "adv", false, "Roll the first d20 with advantage")
	rollCmd.Flags().BoolVar(&rollDisadvantage, "dis", false, "Roll the first d20 with disadvantage")
	rollCmd.Flags().StringVar(&rollCategory, "category", string(rollpolicy.CategoryOther), "Roll category: attack, damage, skill, save or other")
	rollCmd.Flags().IntVar(&rollCritRange, "crit-range", 0, "Lowest natural d20 that counts as critical (default 20)")
	rollCmd.Flags().Uint64Var(&rollSeed, "seed", 0, "Seed for a reproducible roll")
	rollCmd.Flags().BoolVar(&rollCritical, "critical", false, "Roll as critical damage, doubling the dice")
}

func runRoll(cmd *cobra.Command, args []string) error {
	var src dice.Source = dice.NewToolkitSource()
	if cmd.Flags().Changed("seed") {
		src = dice.NewSeededSource(rollSeed)
	}

	formula := rollpolicy.Formula{
		Notation:      args[0],
		Category:      rollpolicy.Category(rollCategory),
		CriticalRange: rollCritRange,
		Advantage:     rollAdvantage,
		Disadvantage:  rollDisadvantage,
	}

	var (
		result rollpolicy.RollResult
		err    error
	)
	if rollCritical {
		result, err = rollpolicy.RollCriticalDamage(formula, src, time.Now())
	} else {
		result, err = rollpolicy.ParseAndRoll(formula, src, time.Now())
	}
	if err != nil {
		return err
	}

	printRoll(cmd.OutOrStdout(), result)
	return nil
}

func printRoll(w io.Writer, result rollpolicy.RollResult) {
	_, _ = fmt.Fprintf(w, "%s => %d\n", result.Notation, result.Total)
	_, _ = fmt.Fprintf(w, "  Evaluated: %s\n", result.Evaluated)
	_, _ = fmt.Fprintf(w, "  Kept: %v\n", result.Kept())
	if result.Mode != rollpolicy.ModeNormal && result.AdvantageRoll != nil {
		_, _ = fmt.Fprintf(w, "  %s: %d and %d, kept %d\n",
			result.Mode, result.AdvantageRoll.Original, result.AdvantageRoll.Extra, result.AdvantageRoll.Chosen)
	}
	switch {
	case result.CriticalHit():
		_, _ = fmt.Fprintln(w, "  Critical hit!")
	case result.IsCritical:
		_, _ = fmt.Fprintln(w, "  Natural critical")
	case result.IsFumble:
		_, _ = fmt.Fprintln(w, "  Fumble")
	}
}
