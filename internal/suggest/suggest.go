// Package suggest turns a free-text note such as "Anna and Ben late for
// training" into a fine suggestion: a cleaned reason, the players it names
// and the fine type.
package suggest

import (
	"context"
	"strings"

	"fjacquet/teamkasse/internal/classifier"
	"fjacquet/teamkasse/internal/models"
)

// Suggestion is a proposed fine. Players are names taken from the roster.
type Suggestion struct {
	Reason   string          `json:"reason"`
	Players  []string        `json:"players"`
	FineType models.FineType `json:"fineType"`
	Source   string          `json:"source"`
}

// Suggestion sources
const (
	SourceKeyword = "keyword"
	SourceGemini  = "gemini"
)

// Suggester proposes a fine for a free-text note.
type Suggester interface {
	Suggest(ctx context.Context, text string, roster []string) (Suggestion, error)
}

// KeywordSuggester matches roster names in the text and classifies the rest
// with the keyword taxonomy.
type KeywordSuggester struct {
	classifier *classifier.Classifier
}

// NewKeywordSuggester creates a keyword suggester. A nil classifier uses the
// built-in keywords.
func NewKeywordSuggester(c *classifier.Classifier) *KeywordSuggester {
	if c == nil {
		c = classifier.Default()
	}
	return &KeywordSuggester{classifier: c}
}

// Suggest implements Suggester.
func (k *KeywordSuggester) Suggest(_ context.Context, text string, roster []string) (Suggestion, error) {
	words := strings.Fields(text)
	used := make([]bool, len(words))
	var players []string

	for _, name := range roster {
		if idx := findName(words, name); idx >= 0 {
			players = append(players, name)
			for i := range len(strings.Fields(name)) {
				used[idx+i] = true
			}
		}
	}
	// fall back to first names for players not matched by their full name
	for _, name := range roster {
		if contains(players, name) {
			continue
		}
		first := strings.Fields(name)
		if len(first) < 2 {
			continue
		}
		if idx := findName(words, first[0]); idx >= 0 && !used[idx] {
			players = append(players, name)
			used[idx] = true
		}
	}

	var rest []string
	for i, w := range words {
		if !used[i] && !isFiller(w) {
			rest = append(rest, w)
		}
	}
	reason := strings.Join(rest, " ")
	if reason == "" {
		reason = strings.Join(words, " ")
	}

	return Suggestion{
		Reason:   reason,
		Players:  players,
		FineType: k.fineType(reason),
		Source:   SourceKeyword,
	}, nil
}

func (k *KeywordSuggester) fineType(reason string) models.FineType {
	if k.classifier.Classify(reason) == classifier.KindBeverage {
		return models.FineTypeBeverage
	}
	return models.FineTypeRegular
}

// findName returns the index of the first word of name in words, or -1.
func findName(words []string, name string) int {
	parts := strings.Fields(models.NormalizeName(name))
	if len(parts) == 0 {
		return -1
	}
	for i := 0; i+len(parts) <= len(words); i++ {
		match := true
		for j, p := range parts {
			if trimWord(words[i+j]) != p {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trimWord(w string) string {
	return models.NormalizeName(strings.Trim(w, ".,;:!?()\"'"))
}

var fillers = map[string]struct{}{
	"": {}, "and": {}, "und": {}, "&": {}, "+": {},
}

func isFiller(w string) bool {
	_, ok := fillers[trimWord(w)]
	return ok
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
