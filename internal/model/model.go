// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Supported practice platforms. LeetCode is the only numbered platform;
// all others are identified by normalized title.
const (
	PlatformLeetCode     = "leetcode"
	PlatformCodeforces   = "codeforces"
	PlatformGFG          = "gfg"
	PlatformInterviewBit = "interviewbit"
	PlatformHackerRank   = "hackerrank"
)

// Platforms lists every supported platform value.
var Platforms = []string{
	PlatformLeetCode,
	PlatformCodeforces,
	PlatformGFG,
	PlatformInterviewBit,
	PlatformHackerRank,
}

// ValidPlatform reports whether p is a supported platform value.
func ValidPlatform(p string) bool {
	for _, v := range Platforms {
		if p == v {
			return true
		}
	}
	return false
}

// Question difficulty values.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d is a supported difficulty value.
func ValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Question status values.
const (
	StatusSolved    = "solved"
	StatusUnsolved  = "unsolved"
	StatusForFuture = "for-future"
)

// ValidStatus reports whether s is a supported status value.
func ValidStatus(s string) bool {
	return s == StatusSolved || s == StatusUnsolved || s == StatusForFuture
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account. Passwords are stored as Argon2id hashes with
// per-user salts; Google-provisioned accounts carry an empty hash.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	Name      string
	Email     string // unique
	PwdHash   []byte
	SaltAuth  []byte
	CreatedAt time.Time
}

// Question is a single tracked practice problem.
//
// UniqueID and QuestionID are derived, never client-supplied: they are
// recomputed from (platform, number-or-title[, user]) immediately before
// every insert and every identity-touching update. UniqueID carries the
// per-collection uniqueness constraint.
type Question struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Platform      string
	QuestNumber   string
	QuestName     string
	QuestLink     string
	Difficulty    string
	Status        string
	Topics        []string
	Notes         string
	Description   string
	Bookmarked    bool
	LastRevisedAt *time.Time
	UniqueID      string
	QuestionID    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QuestionInput is the client-supplied portion of a question write.
type QuestionInput struct {
	Platform    string
	QuestNumber string
	QuestName   string
	QuestLink   string
	Difficulty  string
	Status      string
	Topics      []string
	Notes       string
	Description string
	Bookmarked  bool
}

// QuestionPatch is a partial update of non-identity fields. Nil means
// "leave unchanged". Identity fields (platform, number, name) are not
// patchable; changing them goes through the upsert path with full identity.
type QuestionPatch struct {
	Status        *string
	Difficulty    *string
	Notes         *string
	Bookmarked    *bool
	Topics        *[]string
	LastRevisedAt *time.Time
}

// Sortable list fields, whitelisted in the repository.
const (
	SortCreatedAt     = "createdAt"
	SortUpdatedAt     = "updatedAt"
	SortLastRevisedAt = "lastRevisedAt"
	SortDifficulty    = "difficulty"
	SortQuestNumber   = "questNumber"
	SortQuestName     = "questName"
)

// Search scopes for ListFilter.SearchBy.
const (
	SearchByName   = "name"
	SearchByNumber = "number"
	SearchByAny    = ""
)

// ListFilter narrows and orders a user's question list.
type ListFilter struct {
	Status       string
	Difficulties []string
	Platforms    []string
	Topics       []string
	Bookmarked   bool
	Search       string
	SearchBy     string
	SortBy       string
	SortDesc     bool
	Page         int
	Limit        int
}

// Pagination summarizes a page of results.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	Limit       int
	HasNextPage bool
	HasPrevPage bool
}

// UpsertResult reports the written question and whether it was newly created.
type UpsertResult struct {
	Question Question
	Created  bool
}

// TopicCount is one topic with its usage counts.
type TopicCount struct {
	Topic       string
	Count       int
	SolvedCount int
}

// TopicGroup is all of a user's questions under one topic.
type TopicGroup struct {
	Topic       string
	Questions   []Question
	Count       int
	SolvedCount int
}

// StatusCounts is the overview block of user statistics.
type StatusCounts struct {
	Total      int
	Solved     int
	Unsolved   int
	ForFuture  int
	Bookmarked int
}

// SolvedCount pairs a bucket total with its solved share.
type SolvedCount struct {
	Total  int
	Solved int
}

// TopicStat is per-topic progress including solve percentage.
type TopicStat struct {
	Topic      string
	Total      int
	Solved     int
	Percentage int
}

// DayCount is one day of activity.
type DayCount struct {
	Day   string // YYYY-MM-DD
	Count int
}

// Stats aggregates a user's progress for the analytics view.
type Stats struct {
	Overview       StatusCounts
	ByDifficulty   map[string]SolvedCount
	ByPlatform     map[string]SolvedCount
	ByTopic        []TopicStat
	RecentActivity []DayCount
	NeedsRevision  []Question
	WeakAreas      []TopicStat
	CompletionRate int
}

// Heatmap is one calendar year of revision activity.
type Heatmap struct {
	Year           int
	Days           map[string]int // YYYY-MM-DD -> revisions
	TotalDays      int
	TotalRevisions int
}
