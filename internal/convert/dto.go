// Package convert maps between domain entities and the JSON wire DTOs used
// by the HTTP API and the CLI client.
package convert

import (
	"fmt"
	"time"

	model "github.com/cpcoders/codetrack/internal/model"
	u "github.com/gofrs/uuid/v5"
)

// --- wire DTOs ---

// QuestionDTO is the wire form of a tracked question.
type QuestionDTO struct {
	ID            string   `json:"id"`
	Platform      string   `json:"platform"`
	QuestNumber   string   `json:"questNumber,omitempty"`
	QuestName     string   `json:"questName"`
	QuestLink     string   `json:"questLink"`
	Difficulty    string   `json:"difficulty"`
	Status        string   `json:"status"`
	Topics        []string `json:"topics"`
	Notes         string   `json:"notes,omitempty"`
	Description   string   `json:"description,omitempty"`
	Bookmarked    bool     `json:"bookmarked"`
	LastRevisedAt *string  `json:"lastRevisedAt,omitempty"`
	UniqueID      string   `json:"uniqueId"`
	QuestionID    string   `json:"questionId"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
}

// QuestionInputDTO is the client-supplied portion of a question write.
type QuestionInputDTO struct {
	Platform    string   `json:"platform"`
	QuestNumber string   `json:"questNumber"`
	QuestName   string   `json:"questName"`
	QuestLink   string   `json:"questLink"`
	Difficulty  string   `json:"difficulty"`
	Status      string   `json:"status"`
	Topics      []string `json:"topics"`
	Notes       string   `json:"notes"`
	Description string   `json:"description"`
	Bookmarked  bool     `json:"bookmarked"`
}

// QuestionPatchDTO is a partial update; absent fields stay unchanged.
type QuestionPatchDTO struct {
	Status     *string   `json:"status"`
	Difficulty *string   `json:"difficulty"`
	Notes      *string   `json:"notes"`
	Bookmarked *bool     `json:"bookmarked"`
	Topics     *[]string `json:"topics"`
}

// UserDTO is the wire form of an account profile.
type UserDTO struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// PaginationDTO summarizes one page of list results.
type PaginationDTO struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// --- helpers ---

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// --- questions ---

// ToQuestionDTO converts a domain question to its wire form.
func ToQuestionDTO(q model.Question) QuestionDTO {
	d := QuestionDTO{
		ID:          q.ID.String(),
		Platform:    q.Platform,
		QuestNumber: q.QuestNumber,
		QuestName:   q.QuestName,
		QuestLink:   q.QuestLink,
		Difficulty:  q.Difficulty,
		Status:      q.Status,
		Topics:      q.Topics,
		Notes:       q.Notes,
		Description: q.Description,
		Bookmarked:  q.Bookmarked,
		UniqueID:    q.UniqueID,
		QuestionID:  q.QuestionID,
		CreatedAt:   ts(q.CreatedAt),
		UpdatedAt:   ts(q.UpdatedAt),
	}
	if d.Topics == nil {
		d.Topics = []string{}
	}
	if q.LastRevisedAt != nil {
		s := ts(*q.LastRevisedAt)
		d.LastRevisedAt = &s
	}
	return d
}

// ToQuestionDTOs converts a slice of domain questions.
func ToQuestionDTOs(qs []model.Question) []QuestionDTO {
	out := make([]QuestionDTO, 0, len(qs))
	for _, q := range qs {
		out = append(out, ToQuestionDTO(q))
	}
	return out
}

// FromQuestionInputDTO converts a wire write payload to domain input.
func FromQuestionInputDTO(in QuestionInputDTO) model.QuestionInput {
	return model.QuestionInput{
		Platform:    in.Platform,
		QuestNumber: in.QuestNumber,
		QuestName:   in.QuestName,
		QuestLink:   in.QuestLink,
		Difficulty:  in.Difficulty,
		Status:      in.Status,
		Topics:      in.Topics,
		Notes:       in.Notes,
		Description: in.Description,
		Bookmarked:  in.Bookmarked,
	}
}

// FromQuestionInputDTOs converts a batch of write payloads.
func FromQuestionInputDTOs(in []QuestionInputDTO) []model.QuestionInput {
	out := make([]model.QuestionInput, 0, len(in))
	for _, d := range in {
		out = append(out, FromQuestionInputDTO(d))
	}
	return out
}

// FromQuestionPatchDTO converts a wire patch to a domain patch.
func FromQuestionPatchDTO(in QuestionPatchDTO) model.QuestionPatch {
	return model.QuestionPatch{
		Status:     in.Status,
		Difficulty: in.Difficulty,
		Notes:      in.Notes,
		Bookmarked: in.Bookmarked,
		Topics:     in.Topics,
	}
}

// --- users ---

// ToUserDTO converts a domain user to its wire form. Credentials never
// cross the wire.
func ToUserDTO(us model.User) UserDTO {
	return UserDTO{
		ID:        us.ID.String(),
		Username:  us.Username,
		Name:      us.Name,
		Email:     us.Email,
		CreatedAt: ts(us.CreatedAt),
	}
}

// --- pagination ---

// ToPaginationDTO converts pagination info to its wire form.
func ToPaginationDTO(p model.Pagination) PaginationDTO {
	return PaginationDTO{
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		TotalCount:  p.TotalCount,
		Limit:       p.Limit,
		HasNextPage: p.HasNextPage,
		HasPrevPage: p.HasPrevPage,
	}
}

// ParseUUID parses a path or payload id into a UUID.
func ParseUUID(s string) (u.UUID, error) {
	var id u.UUID
	if err := id.UnmarshalText([]byte(s)); err != nil {
		return u.Nil, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}
