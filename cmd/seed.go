package cmd

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/helmcode/labs-ai/pkg/store"
	"github.com/spf13/cobra"
)

var (
	seedMonths int
	seedValue  uint64
)

func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the store with demo lab panels",
		Long: `Generate one random panel per month, ending this month, and save them into the
SQL store. Useful for trying the dashboard without real data.

Examples:
  labs-ai seed
  labs-ai seed --months 24 --seed 42`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}

	cmd.Flags().IntVar(&seedMonths, "months", 12, "Number of monthly panels to generate")
	cmd.Flags().Uint64Var(&seedValue, "seed", 0, "Random seed (0 picks one from the clock)")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedMonths <= 0 {
		return fmt.Errorf("--months must be positive")
	}

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}

	seed := seedValue
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	history := store.DemoHistory(time.Now(), seedMonths, rand.New(rand.NewPCG(seed, seed)))

	n, err := savePanels(cmd, a, history)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Seeded %d demo panels", n))
	return nil
}
