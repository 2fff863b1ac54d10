package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wingo/config"
	"wingo/events"
	"wingo/repository"
	"wingo/service"
)

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Inspect rounds",
}

var recentRoundsCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the latest rounds of an interval",
	Args:  cobra.NoArgs,
	RunE:  runRecentRounds,
}

func init() {
	recentRoundsCmd.Flags().StringP("interval", "i", "1m", "Interval label")
	recentRoundsCmd.Flags().IntP("limit", "n", 10, "Number of rounds to show")
	roundsCmd.AddCommand(recentRoundsCmd)
}

func runRecentRounds(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetString("interval")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := config.Get()
	ctx := cmd.Context()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Read-only; the factory is never used to begin a transaction here
	uowFactory := repository.NewUnitOfWorkFactory(db, events.NewBus())
	rounds := service.NewRoundService(uowFactory, repository.NewRoundRepository(db), cfg.Intervals, cfg.BettingCutoff)

	recent, err := rounds.GetRecentRounds(ctx, interval, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tSERIAL\tSTART\tEND\tSTATUS\tRESULT")
	for _, round := range recent {
		result := "-"
		if round.ResultNumber != nil {
			result = fmt.Sprintf("%d", *round.ResultNumber)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			round.Period,
			round.SerialNumber,
			round.StartTime.Format("15:04:05.000"),
			round.EndTime.Format("15:04:05.000"),
			round.Status,
			result,
		)
	}
	return w.Flush()
}
