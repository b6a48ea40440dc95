package app

import (
	"math"
	"sort"

	"quiz-leaderboard/internal/domain"
)

const (
	streakThreshold  = 70
	recentWindowSize = 5
	bonusExcellent   = 5
	bonusGreat       = 3
	bonusPass        = 1
)

// ComputeStats reduces one user's submissions into a UserStats summary.
// The input slice is never reordered.
func ComputeStats(submissions []domain.SubmissionRecord) domain.UserStats {
	if len(submissions) == 0 {
		return domain.UserStats{}
	}

	stats := domain.UserStats{
		TotalQuizzes: len(submissions),
		HighestScore: submissions[0].Score,
		LowestScore:  submissions[0].Score,
	}
	percentageSum := 0
	for _, s := range submissions {
		stats.TotalScore += s.Score
		stats.TotalPoints += s.Score + bonusPoints(s.Percentage)
		percentageSum += s.Percentage
		if s.Score > stats.HighestScore {
			stats.HighestScore = s.Score
		}
		if s.Score < stats.LowestScore {
			stats.LowestScore = s.Score
		}
	}
	stats.AverageScore = round2(float64(stats.TotalScore) / float64(stats.TotalQuizzes))
	stats.AveragePercentage = round2(float64(percentageSum) / float64(stats.TotalQuizzes))

	recent := byRecency(submissions)
	for _, s := range recent {
		if s.Percentage < streakThreshold {
			break
		}
		stats.RecentStreak++
	}
	stats.RecentPerformance = recentPerformance(recent)
	return stats
}

// recentPerformance expects submissions ordered most recent first.
func recentPerformance(recent []domain.SubmissionRecord) float64 {
	if len(recent) == 0 {
		return 0
	}
	if len(recent) > recentWindowSize {
		recent = recent[:recentWindowSize]
	}
	sum := 0
	for _, s := range recent {
		sum += s.Percentage
	}
	return round2(float64(sum) / float64(len(recent)))
}

func bonusPoints(percentage int) int {
	switch {
	case percentage >= 90:
		return bonusExcellent
	case percentage >= 80:
		return bonusGreat
	case percentage >= streakThreshold:
		return bonusPass
	default:
		return 0
	}
}

// byRecency returns a copy sorted by SubmittedAt descending. Records still
// waiting on a server timestamp count as the newest.
func byRecency(submissions []domain.SubmissionRecord) []domain.SubmissionRecord {
	sorted := make([]domain.SubmissionRecord, len(submissions))
	copy(sorted, submissions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.HasTimestamp() || !b.HasTimestamp() {
			return !a.HasTimestamp() && b.HasTimestamp()
		}
		return a.SubmittedAt.After(b.SubmittedAt)
	})
	return sorted
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
