package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"quiz-leaderboard/internal/domain"
)

type leaderboardFlags struct {
	department string
	user       string
	ranking    string
	period     string
	limit      int
}

// NewLeaderboardCmd prints one leaderboard, or a user's position, as JSON.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	flags := &leaderboardFlags{}
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Generate a leaderboard once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd.Context(), *configPath, flags, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flags.department, "department", "", "department to rank (global when empty)")
	cmd.Flags().StringVar(&flags.user, "user", "", "print this user's position instead of the leaderboard")
	cmd.Flags().StringVar(&flags.ranking, "ranking", string(domain.RankAverageScore), "averageScore|totalScore|quizCount|streak|recentPerformance")
	cmd.Flags().StringVar(&flags.period, "period", string(domain.PeriodAllTime), "allTime|today|week|month")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum users to print (0 uses the configured default)")
	return cmd
}

func runLeaderboard(ctx context.Context, configPath string, flags *leaderboardFlags, out io.Writer) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	st, err := buildStack(ctx, cfg, newLogger(cfg, nil))
	if err != nil {
		return err
	}
	defer st.Close()

	ranking := domain.ParseRankingType(flags.ranking)
	period := domain.ParseTimePeriod(flags.period)

	var body any
	switch {
	case flags.user != "":
		body, err = st.service.GetUserPosition(ctx, flags.user, flags.department, ranking, period)
	case flags.department != "":
		body, err = st.service.GenerateDepartmentLeaderboard(ctx, flags.department, ranking, period, flags.limit)
	default:
		body = st.service.GenerateGlobalLeaderboard(ctx, ranking, period, flags.limit)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}
