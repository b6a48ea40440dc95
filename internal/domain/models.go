package domain

import "time"

// RankingType selects the statistic used as the primary sort key.
type RankingType string

const (
	RankAverageScore      RankingType = "averageScore"
	RankTotalScore        RankingType = "totalScore"
	RankQuizCount         RankingType = "quizCount"
	RankStreak            RankingType = "streak"
	RankRecentPerformance RankingType = "recentPerformance"
)

// ParseRankingType maps a raw value to a RankingType, defaulting to average score.
func ParseRankingType(raw string) RankingType {
	switch RankingType(raw) {
	case RankTotalScore, RankQuizCount, RankStreak, RankRecentPerformance:
		return RankingType(raw)
	default:
		return RankAverageScore
	}
}

// TimePeriod is the relative window submissions are filtered to.
type TimePeriod string

const (
	PeriodAllTime   TimePeriod = "allTime"
	PeriodToday     TimePeriod = "today"
	PeriodThisWeek  TimePeriod = "week"
	PeriodThisMonth TimePeriod = "month"
)

// ParseTimePeriod maps a raw value to a TimePeriod, defaulting to all time.
func ParseTimePeriod(raw string) TimePeriod {
	switch TimePeriod(raw) {
	case PeriodToday, PeriodThisWeek, PeriodThisMonth:
		return TimePeriod(raw)
	default:
		return PeriodAllTime
	}
}

// ScopeKind distinguishes department and global leaderboards.
type ScopeKind string

const (
	ScopeDepartment ScopeKind = "department"
	ScopeGlobal     ScopeKind = "global"
)

// Scope identifies which population a leaderboard covers.
type Scope struct {
	Kind       ScopeKind `json:"kind"`
	Department string    `json:"department,omitempty"`
}

// SubmissionRecord is one quiz attempt by one user. Records are immutable.
type SubmissionRecord struct {
	SubmissionID     string
	QuizID           string
	UserID           string
	RegNumber        string
	FullName         string
	Department       string
	Email            string
	Score            int
	Total            int
	Percentage       int
	TimeSpentSeconds int

	// SubmittedAt is the zero time while the server timestamp is pending.
	SubmittedAt time.Time
}

// HasTimestamp reports whether the server timestamp has been written.
func (r SubmissionRecord) HasTimestamp() bool {
	return !r.SubmittedAt.IsZero()
}

// UserStats summarises a user's submissions.
type UserStats struct {
	TotalQuizzes      int     `json:"totalQuizzes"`
	TotalScore        int     `json:"totalScore"`
	AverageScore      float64 `json:"averageScore"`
	AveragePercentage float64 `json:"averagePercentage"`
	HighestScore      int     `json:"highestScore"`
	LowestScore       int     `json:"lowestScore"`
	RecentStreak      int     `json:"recentStreak"`
	TotalPoints       int     `json:"totalPoints"`
	RecentPerformance float64 `json:"recentPerformance"`
}

// UserAggregate is built fresh for every ranking run and never persisted.
type UserAggregate struct {
	UserID      string             `json:"userId"`
	RegNumber   string             `json:"regNumber"`
	FullName    string             `json:"fullName"`
	Department  string             `json:"department"`
	Email       string             `json:"email"`
	Submissions []SubmissionRecord `json:"-"`
	Stats       UserStats          `json:"stats"`
	Rank        int                `json:"rank"`
}

// LeaderboardResult is the output of a leaderboard generation.
type LeaderboardResult struct {
	Scope             Scope           `json:"scope"`
	RankingType       RankingType     `json:"rankingType"`
	TimePeriod        TimePeriod      `json:"timePeriod"`
	Users             []UserAggregate `json:"users"`
	TotalParticipants int             `json:"totalParticipants"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	HasData           bool            `json:"hasData"`
	Error             string          `json:"error,omitempty"`
}

// ScopePosition is a user's standing within one leaderboard. Rank and Stats
// are nil when the user has no submissions in that scope.
type ScopePosition struct {
	Rank              *int       `json:"rank"`
	TotalParticipants int        `json:"totalParticipants"`
	Stats             *UserStats `json:"stats"`
	HasData           bool       `json:"hasData"`
}

// UserPosition pairs a user's department and global standings.
type UserPosition struct {
	Department *ScopePosition `json:"department"`
	Global     *ScopePosition `json:"global"`
}

// LiveUpdate is pushed to broker subscribers after each refresh.
type LiveUpdate struct {
	Department  *LeaderboardResult `json:"department,omitempty"`
	Global      *LeaderboardResult `json:"global,omitempty"`
	Error       string             `json:"error,omitempty"`
	LastUpdated time.Time          `json:"lastUpdated"`
}
