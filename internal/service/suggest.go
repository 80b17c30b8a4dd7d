package service

import (
	"context"
	"fmt"
	"strings"

	"fjacquet/teamkasse/internal/suggest"
)

// SuggestFine proposes a fine for a free-text note, matching players
// against the active roster.
func (s *Service) SuggestFine(ctx context.Context, text string) (suggest.Suggestion, error) {
	if strings.TrimSpace(text) == "" {
		return suggest.Suggestion{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	members, err := s.ListMembers(ctx, false)
	if err != nil {
		return suggest.Suggestion{}, err
	}
	roster := make([]string, 0, len(members))
	for _, m := range members {
		roster = append(roster, m.Name)
	}
	return s.suggester.Suggest(ctx, text, roster)
}
