// Package identity derives deterministic identifiers for practice questions.
//
// Every question a user tracks gets two derived keys: a per-user uniqueId
// used to deduplicate entries inside one collection, and a cross-user
// questionId that correlates the same problem between accounts. Both are
// pure functions of the (platform, number-or-title, user) tuple and are
// recomputed before every write; they are never accepted from clients.
package identity

import (
	"fmt"
	"strings"
)

// Sep joins identifier segments. Normalize strips it from title fragments;
// platform values and user IDs never contain it.
const Sep = "_"

// PlatformLeetCode is the only platform whose questions are authoritatively
// identified by problem number rather than by title.
const PlatformLeetCode = "leetcode"

// Input is the identity tuple for one question record.
type Input struct {
	Platform       string
	QuestionNumber string
	QuestionTitle  string
	UserID         string
}

// MissingFieldError reports a structurally required input that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("identity: missing required field %q", e.Field)
}

// InvalidIdentityError reports input that was present but degenerate after
// normalization (e.g. a title with no alphanumeric content).
type InvalidIdentityError struct {
	Reason string
}

func (e *InvalidIdentityError) Error() string {
	return "identity: " + e.Reason
}

// Normalize lowercases a title, trims surrounding whitespace and strips every
// character outside [a-z0-9]. An empty result is valid; callers decide
// whether emptiness is an error.
func Normalize(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UniqueID derives the per-user deduplication key.
//
// LeetCode entries are keyed by question number; every other platform is
// keyed by normalized title. Calling it twice with identical input yields
// byte-identical output; the storage uniqueness constraint relies on that
// for idempotent upserts.
func UniqueID(in Input) (string, error) {
	if in.UserID == "" {
		return "", &MissingFieldError{Field: "userId"}
	}
	frag, platform, err := identityFragment(in)
	if err != nil {
		return "", err
	}
	return platform + Sep + frag + Sep + in.UserID, nil
}

// QuestionID derives the cross-user correlation key: same function as
// UniqueID with the user segment omitted.
func QuestionID(in Input) (string, error) {
	frag, platform, err := identityFragment(in)
	if err != nil {
		return "", err
	}
	return platform + Sep + frag, nil
}

func identityFragment(in Input) (frag, platform string, err error) {
	if in.Platform == "" {
		return "", "", &MissingFieldError{Field: "platform"}
	}
	platform = strings.ToLower(strings.TrimSpace(in.Platform))

	if platform == PlatformLeetCode {
		if in.QuestionNumber == "" {
			return "", "", &MissingFieldError{Field: "questionNumber"}
		}
		return strings.TrimSpace(in.QuestionNumber), platform, nil
	}

	if in.QuestionTitle == "" {
		return "", "", &MissingFieldError{Field: "questionTitle"}
	}
	norm := Normalize(in.QuestionTitle)
	if norm == "" {
		return "", "", &InvalidIdentityError{Reason: "question title has no alphanumeric content"}
	}
	return norm, platform, nil
}

// IsWellFormed is a cheap structural check over an already produced
// identifier: at least three segments, first and last non-empty. It does not
// verify the identifier against its semantic inputs.
func IsWellFormed(id string) bool {
	parts := strings.Split(id, Sep)
	return len(parts) >= 3 && parts[0] != "" && parts[len(parts)-1] != ""
}

// Parsed is the structural decomposition of a unique identifier.
type Parsed struct {
	Platform   string
	Identifier string
	UserID     string
	IsNumbered bool
}

// Parse splits an identifier into its components. The middle segments are
// rejoined with Sep; safe only because Normalize already removed Sep from
// title fragments. Returns false when the identifier is malformed.
func Parse(id string) (Parsed, bool) {
	if !IsWellFormed(id) {
		return Parsed{}, false
	}
	parts := strings.Split(id, Sep)
	p := Parsed{
		Platform:   parts[0],
		Identifier: strings.Join(parts[1:len(parts)-1], Sep),
		UserID:     parts[len(parts)-1],
	}
	p.IsNumbered = p.Platform == PlatformLeetCode
	return p, true
}
