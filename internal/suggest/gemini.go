package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

// ErrEmptyResponse is returned when Gemini answers without content.
var ErrEmptyResponse = errors.New("no response from Gemini API")

// generator is the part of genai.GenerativeModel the suggester calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds the Gemini client settings.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiSuggester asks Gemini to extract the reason and the players from a
// note. Failed or unusable answers fall back to keyword matching.
type GeminiSuggester struct {
	client   *genai.Client
	model    generator
	timeout  time.Duration
	fallback *KeywordSuggester
	logger   logging.Logger
}

// NewGeminiSuggester creates a Gemini client for the configured model.
func NewGeminiSuggester(ctx context.Context, cfg GeminiConfig, fallback *KeywordSuggester, logger logging.Logger) (*GeminiSuggester, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0)

	g := newGeminiSuggester(model, cfg.Timeout, fallback, logger)
	g.client = client
	return g, nil
}

func newGeminiSuggester(model generator, timeout time.Duration, fallback *KeywordSuggester, logger logging.Logger) *GeminiSuggester {
	if fallback == nil {
		fallback = NewKeywordSuggester(nil)
	}
	return &GeminiSuggester{
		model:    model,
		timeout:  timeout,
		fallback: fallback,
		logger:   logging.OrDefault(logger),
	}
}

// Close releases the Gemini client.
func (g *GeminiSuggester) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Suggest implements Suggester.
func (g *GeminiSuggester) Suggest(ctx context.Context, text string, roster []string) (Suggestion, error) {
	s, err := g.ask(ctx, text, roster)
	if err != nil {
		g.logger.WithError(err).Warn("Gemini suggestion failed, falling back to keywords",
			logging.F(logging.FieldReason, text))
		return g.fallback.Suggest(ctx, text, roster)
	}
	return s, nil
}

func (g *GeminiSuggester) ask(ctx context.Context, text string, roster []string) (Suggestion, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt(text, roster)))
	if err != nil {
		return Suggestion{}, fmt.Errorf("Gemini API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return Suggestion{}, ErrEmptyResponse
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		fmt.Fprintf(&reply, "%v", part)
	}

	s, ok := parseReply(reply.String(), roster)
	if !ok {
		return Suggestion{}, fmt.Errorf("unstructured Gemini reply: %q", reply.String())
	}
	if s.FineType == "" {
		s.FineType = g.fallback.fineType(s.Reason)
	}
	g.logger.Debug("Fine suggested by Gemini",
		logging.F(logging.FieldReason, s.Reason), logging.F(logging.FieldCount, len(s.Players)))
	return s, nil
}

func prompt(text string, roster []string) string {
	return fmt.Sprintf(`A sports team treasurer wrote the following note about a fine:
%s

Team roster:
%s

Extract the reason for the fine and the players it applies to. Only use names from the roster.
Respond in this format:
Reason: [short reason]
Players: [comma separated roster names]
Type: [regular or beverage]`,
		text, strings.Join(roster, ", "))
}

// parseReply reads the Reason/Players/Type lines of a reply. Player names
// not on the roster are dropped.
func parseReply(reply string, roster []string) (Suggestion, bool) {
	s := Suggestion{Source: SourceGemini}
	byName := make(map[string]string, len(roster))
	for _, name := range roster {
		byName[models.NormalizeName(name)] = name
	}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*"))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.Trim(value, "* ")
		switch strings.ToLower(strings.TrimSpace(strings.Trim(key, "* "))) {
		case "reason":
			s.Reason = value
		case "players":
			for _, p := range strings.Split(value, ",") {
				if name, ok := byName[models.NormalizeName(p)]; ok && !contains(s.Players, name) {
					s.Players = append(s.Players, name)
				}
			}
		case "type":
			switch models.FineType(strings.ToLower(value)) {
			case models.FineTypeBeverage:
				s.FineType = models.FineTypeBeverage
			case models.FineTypeRegular:
				s.FineType = models.FineTypeRegular
			}
		}
	}
	return s, s.Reason != ""
}
