package cli

import (
	"github.com/spf13/cobra"
)

func newRankingsCmd() *cobra.Command {
	var metric string
	var limit int

	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := rest.GetRankings(metric, limit)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(*result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&metric, "type", "t", "level", "Ranking metric: level, gold, monsters, quests, damage")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of entries (0 = server default)")

	return cmd
}
