// internal/lexicon/lexicon.go
//
// Word list management for the game core.
//
// Responsibilities:
//   - Load the valid-word and rejected-word lists from environment-provided
//     files or fall back to embedded defaults.
//   - Maintain sets for quick lookups (valid words, rejected words).
//   - Generate random initial words from a "simple word" list.
//
// Word Lists:
//   - "valid": acceptable English words; the 2of12inf list works here, its
//     `%` frequency marker is stripped during normalization.
//   - "rejected": words that are never allowed even when the dictionary
//     contains them.
//   - "simple": small everyday words used to seed the first turn.
//
// Environment variables:
//   WORDS_VALID_FILE=/path/to/2of12inf.txt
//   WORDS_REJECTED_FILE=/path/to/rejected.txt
//   WORDS_SIMPLE_FILE=/path/to/3esl.txt
//
// Failure behavior:
//   - An unreadable dictionary source returns ErrDictionaryLoad but leaves
//     the lexicon usable with empty sets, so validation degrades to
//     rejecting every word instead of crashing the process.
//   - An unreadable simple-word source (or a list with no qualifying entry)
//     surfaces as ErrWordSource from RandomWord.

package lexicon

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
)

// --- embedded defaults (ensures the server runs even if no files configured) ---

//go:embed default_valid.txt
var embeddedValid string

//go:embed default_rejected.txt
var embeddedRejected string

//go:embed default_simple.txt
var embeddedSimple string

var (
	// ErrDictionaryLoad reports that a word-list source could not be read.
	ErrDictionaryLoad = errors.New("lexicon: dictionary load failed")

	// ErrWordSource reports that the simple-word source is unusable.
	ErrWordSource = errors.New("lexicon: simple word source unavailable")
)

// defaultSampleAttempts bounds RandomWord re-sampling so a degenerate simple
// list fails loudly instead of looping forever.
const defaultSampleAttempts = 10000

// Lexicon holds the loaded word sets. It is read-only after Load and safe to
// share across every room without synchronization.
type Lexicon struct {
	valid    map[string]struct{}
	rejected map[string]struct{}

	simpleOnce sync.Once
	simple     []string
	simpleErr  error

	sampleAttempts int
}

// New constructs an empty Lexicon. Call Load before use.
func New() *Lexicon {
	return &Lexicon{
		valid:          map[string]struct{}{},
		rejected:       map[string]struct{}{},
		sampleAttempts: defaultSampleAttempts,
	}
}

// Load reads the valid and rejected word lists.
//
// Sources are resolved in order: env-provided file path, then embedded
// default. On error the sets stay empty and the error is returned so the
// caller can log it and keep serving in degraded mode.
func (l *Lexicon) Load() error {
	valid, err := loadList(os.Getenv("WORDS_VALID_FILE"), embeddedValid)
	if err != nil {
		return fmt.Errorf("%w: valid words: %v", ErrDictionaryLoad, err)
	}
	rejected, err := loadList(os.Getenv("WORDS_REJECTED_FILE"), embeddedRejected)
	if err != nil {
		return fmt.Errorf("%w: rejected words: %v", ErrDictionaryLoad, err)
	}
	l.valid = toSet(valid)
	l.rejected = toSet(rejected)
	return nil
}

// Contains reports whether w is in the valid-word list. Case-insensitive.
func (l *Lexicon) Contains(w string) bool {
	_, ok := l.valid[strings.ToLower(w)]
	return ok
}

// IsRejected reports whether w is in the rejected-word list. Case-insensitive.
func (l *Lexicon) IsRejected(w string) bool {
	_, ok := l.rejected[strings.ToLower(w)]
	return ok
}

// RandomWord draws a random entry from the simple-word list, re-sampling
// until it finds one made solely of lowercase letters, within the inclusive
// length bounds, and not on the rejected list.
//
// Attempts are capped; exhaustion or an unloadable source returns
// ErrWordSource.
func (l *Lexicon) RandomWord(minLen, maxLen int) (string, error) {
	l.simpleOnce.Do(func() {
		words, err := loadList(os.Getenv("WORDS_SIMPLE_FILE"), embeddedSimple)
		if err != nil {
			l.simpleErr = fmt.Errorf("%w: %v", ErrWordSource, err)
			return
		}
		l.simple = words
	})
	if l.simpleErr != nil {
		return "", l.simpleErr
	}
	if len(l.simple) == 0 {
		return "", fmt.Errorf("%w: empty list", ErrWordSource)
	}

	for i := 0; i < l.sampleAttempts; i++ {
		w := l.simple[rand.Intn(len(l.simple))]
		if len(w) < minLen || len(w) > maxLen {
			continue
		}
		if !isLowerAlpha(w) {
			continue
		}
		if l.IsRejected(w) {
			continue
		}
		return w, nil
	}
	return "", fmt.Errorf("%w: no qualifying word within length %d..%d", ErrWordSource, minLen, maxLen)
}

// Stats returns counts of loaded words: (valid, rejected).
func (l *Lexicon) Stats() (validCount int, rejectedCount int) {
	return len(l.valid), len(l.rejected)
}

// loadList reads one word per line from path, or from the embedded fallback
// when path is empty. Lines are trimmed, lowercased and have the `%`
// frequency marker stripped; blanks and comments are skipped.
func loadList(path, fallback string) ([]string, error) {
	if path == "" {
		return normalizeLines(fallback), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := normalizeLine(sc.Text()); w != "" {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// normalizeLines processes an embedded multiline string.
func normalizeLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if w := normalizeLine(line); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// normalizeLine strips the 2of12inf `%` marker, trims whitespace and
// lowercases. Returns "" for blank lines and comments.
func normalizeLine(line string) string {
	w := strings.TrimSpace(strings.ReplaceAll(line, "%", ""))
	if w == "" || strings.HasPrefix(w, "#") {
		return ""
	}
	return strings.ToLower(w)
}

// toSet converts a list of strings into a lookup set.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}

// isLowerAlpha reports whether s is all lowercase ASCII letters. Filters out
// hyphenated words, abbreviations and the like.
func isLowerAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return len(s) > 0
}
