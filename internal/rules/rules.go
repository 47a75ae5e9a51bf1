// internal/rules/rules.go
//
// Pure rule engine for turn validation and scoring.
// Responsibilities:
//   - Decide whether a submitted word is a legal follow-up to the previous
//     word (letter reuse, no truncation, pin/ban constraint, dictionary).
//   - Compute the longest reused fragment and the score it awards.
//
// Notes:
//   - Validation is not fail-fast: every rule is evaluated and all
//     violations are reported together, one per line. The client shows the
//     combined message to the offending player.
//   - The literal "-" is a pass and is always valid.
//   - Word lists are provided through the Wordlist interface; the engine
//     itself holds no mutable state and is safe to share across rooms.

package rules

import (
	"fmt"
	"strings"
)

// PassWord is the submission literal that forfeits a turn.
const PassWord = "-"

// Pin/ban constraint kinds as they appear on the wire.
const (
	ConstraintPin = "pin"
	ConstraintBan = "ban"
)

// Wordlist is the read-only dictionary capability the validator consumes.
type Wordlist interface {
	// Contains reports whether w is an acceptable word. Case-insensitive.
	Contains(w string) bool
	// IsRejected reports whether w is disallowed even if the dictionary
	// contains it. Case-insensitive.
	IsRejected(w string) bool
}

// Submission is one player's answer for the current turn. PrevWord is the
// most recently accepted word; PinOrBan/Letter is the constraint imposed on
// this submission, empty when none is active.
type Submission struct {
	Word     string
	PrevWord string
	PinOrBan string // "", "pin" or "ban"
	Letter   string
}

// Verdict is the outcome of validating a submission.
type Verdict struct {
	OK      bool
	Reasons []string
}

// Message renders all violations as a single multi-line string.
func (v Verdict) Message() string {
	return strings.Join(v.Reasons, "\n")
}

// Validator applies the chaining rules against a word list.
type Validator struct {
	words Wordlist
}

// NewValidator constructs a Validator backed by the given word list.
func NewValidator(words Wordlist) *Validator {
	return &Validator{words: words}
}

// Validate checks sub against every rule and accumulates all violations.
// alreadyPlayed reports whether a word was accepted earlier in the same
// game; it may be nil.
func (v *Validator) Validate(sub Submission, alreadyPlayed func(string) bool) Verdict {
	if sub.Word == PassWord {
		return Verdict{OK: true}
	}

	word := strings.ToUpper(strings.TrimSpace(sub.Word))
	prev := strings.ToUpper(strings.TrimSpace(sub.PrevWord))
	letter := strings.ToUpper(strings.TrimSpace(sub.Letter))
	var reasons []string

	if !FragmentReused(word, prev) {
		reasons = append(reasons, "Must reuse at least one letter from the previous word.")
	}
	if word == "" || strings.Contains(prev, word) {
		reasons = append(reasons, "Word cannot be a subset of the previous word.")
	}
	if alreadyPlayed != nil && alreadyPlayed(word) {
		reasons = append(reasons, fmt.Sprintf("%s has already been played.", word))
	}
	switch sub.PinOrBan {
	case ConstraintPin:
		if !strings.Contains(word, letter) {
			reasons = append(reasons, fmt.Sprintf("Word should contain the pinned letter: %s.", letter))
		}
	case ConstraintBan:
		if strings.Contains(word, letter) {
			reasons = append(reasons, fmt.Sprintf("Word should not contain the banned letter: %s.", letter))
		}
	}
	if !v.words.Contains(word) {
		reasons = append(reasons, fmt.Sprintf("Can't find %s in our dictionary.", word))
	}
	if v.words.IsRejected(word) {
		reasons = append(reasons, "This word is not allowed.")
	}

	return Verdict{OK: len(reasons) == 0, Reasons: reasons}
}

// FragmentReused reports whether the two words share at least one character.
// The shorter word is scanned one character at a time against the longer,
// so the test is symmetric and purely presence-based.
func FragmentReused(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	for i := 0; i < len(short); i++ {
		if strings.IndexByte(long, short[i]) >= 0 {
			return true
		}
	}
	return false
}

// LongestReusedFragment returns the longest contiguous substring of curr
// that appears anywhere in prev. Candidate lengths are tried from longest to
// shortest, offsets left to right; the first hit wins.
//
// Returns "" only when the words share no character at all; callers run
// FragmentReused first, which guarantees a length-1 match exists.
func LongestReusedFragment(curr, prev string) string {
	for j := len(curr); j >= 1; j-- {
		for i := 0; i+j <= len(curr); i++ {
			if strings.Contains(prev, curr[i:i+j]) {
				return curr[i : i+j]
			}
		}
	}
	return ""
}

// Score converts a reused fragment into points.
func Score(fragment string) int {
	return 10 * len(fragment)
}
