package app

import (
	"sort"

	"quiz-leaderboard/internal/domain"
)

// Rank groups submissions by user, computes stats per user, orders users by
// rankingType and assigns 1-based ranks. Users keep the order in which they
// first appear in the input when their sort keys are equal.
func Rank(submissions []domain.SubmissionRecord, rankingType domain.RankingType) []domain.UserAggregate {
	users := groupByUser(submissions)
	for i := range users {
		users[i].Stats = ComputeStats(users[i].Submissions)
	}

	less := lessFor(rankingType)
	sort.SliceStable(users, func(i, j int) bool {
		return less(users[i].Stats, users[j].Stats)
	})

	for i := range users {
		users[i].Rank = i + 1
	}
	return users
}

func groupByUser(submissions []domain.SubmissionRecord) []domain.UserAggregate {
	index := make(map[string]int)
	users := make([]domain.UserAggregate, 0)
	for _, s := range submissions {
		i, ok := index[s.UserID]
		if !ok {
			i = len(users)
			index[s.UserID] = i
			users = append(users, domain.UserAggregate{UserID: s.UserID})
		}
		// Later records overwrite identity fields.
		u := &users[i]
		u.RegNumber = s.RegNumber
		u.FullName = s.FullName
		u.Department = s.Department
		u.Email = s.Email
		u.Submissions = append(u.Submissions, s)
	}
	return users
}

func lessFor(rankingType domain.RankingType) func(a, b domain.UserStats) bool {
	switch rankingType {
	case domain.RankTotalScore:
		return func(a, b domain.UserStats) bool { return a.TotalScore > b.TotalScore }
	case domain.RankQuizCount:
		return func(a, b domain.UserStats) bool { return a.TotalQuizzes > b.TotalQuizzes }
	case domain.RankStreak:
		return func(a, b domain.UserStats) bool { return a.RecentStreak > b.RecentStreak }
	case domain.RankRecentPerformance:
		return func(a, b domain.UserStats) bool { return a.RecentPerformance > b.RecentPerformance }
	default:
		// Higher participation wins at equal average.
		return func(a, b domain.UserStats) bool {
			if a.AveragePercentage != b.AveragePercentage {
				return a.AveragePercentage > b.AveragePercentage
			}
			return a.TotalQuizzes > b.TotalQuizzes
		}
	}
}
