package suggest

import (
	"context"
	"errors"
	"testing"

	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roster = []string{"Anna Schmidt", "Ben Meier", "Carla"}

func TestKeywordSuggester(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		reason   string
		players  []string
		fineType models.FineType
	}{
		{
			name:     "full names",
			text:     "Anna Schmidt und Ben Meier zu spät",
			reason:   "zu spät",
			players:  []string{"Anna Schmidt", "Ben Meier"},
			fineType: models.FineTypeRegular,
		},
		{
			name:     "first names and punctuation",
			text:     "anna, carla: Bier vergessen",
			reason:   "Bier vergessen",
			players:  []string{"Carla", "Anna Schmidt"},
			fineType: models.FineTypeBeverage,
		},
		{
			name:     "no players",
			text:     "Trikot vergessen",
			reason:   "Trikot vergessen",
			fineType: models.FineTypeRegular,
		},
		{
			name:     "only a name",
			text:     "Ben Meier",
			reason:   "Ben Meier",
			players:  []string{"Ben Meier"},
			fineType: models.FineTypeRegular,
		},
	}

	s := NewKeywordSuggester(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Suggest(context.Background(), tt.text, roster)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.players, got.Players)
			assert.Equal(t, tt.fineType, got.FineType)
			assert.Equal(t, SourceKeyword, got.Source)
		})
	}
}

func TestParseReply(t *testing.T) {
	reply := "**Reason:** Zu spät zum Training\nPlayers: anna schmidt, Nobody, Ben Meier, Anna Schmidt\nType: regular\n"

	s, ok := parseReply(reply, roster)
	require.True(t, ok)
	assert.Equal(t, "Zu spät zum Training", s.Reason)
	assert.Equal(t, []string{"Anna Schmidt", "Ben Meier"}, s.Players)
	assert.Equal(t, models.FineTypeRegular, s.FineType)
	assert.Equal(t, SourceGemini, s.Source)

	_, ok = parseReply("I cannot help with that.", roster)
	assert.False(t, ok)
}

func TestParseReplyMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		reason   string
		players  []string
		fineType models.FineType
	}{
		{
			name:     "bold keys",
			reply:    "**Reason:** Bier vergessen\n**Players:** Carla\n**Type:** beverage",
			reason:   "Bier vergessen",
			players:  []string{"Carla"},
			fineType: models.FineTypeBeverage,
		},
		{
			name:     "bold values",
			reply:    "Reason: **Zu spät**\nPlayers: *Ben Meier*\nType: *regular*",
			reason:   "Zu spät",
			players:  []string{"Ben Meier"},
			fineType: models.FineTypeRegular,
		},
		{
			name:     "italic line",
			reply:    "*Reason: Trikot vergessen*\nPlayers: Anna Schmidt",
			reason:   "Trikot vergessen",
			players:  []string{"Anna Schmidt"},
			fineType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := parseReply(tt.reply, roster)
			require.True(t, ok)
			assert.Equal(t, tt.reason, s.Reason)
			assert.Equal(t, tt.players, s.Players)
			if tt.fineType != "" {
				assert.Equal(t, tt.fineType, s.FineType)
			}
		})
	}
}

type fakeModel struct {
	reply string
	err   error
	calls int
}

func (f *fakeModel) GenerateContent(_ context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &genai.GenerateContentResponse{}, nil
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(f.reply)}},
		}},
	}, nil
}

func TestGeminiSuggester(t *testing.T) {
	model := &fakeModel{reply: "Reason: Apfelwein verschüttet\nPlayers: Carla"}
	s := newGeminiSuggester(model, 0, nil, logging.NewMockLogger())

	got, err := s.Suggest(context.Background(), "Carla hat Apfelwein verschüttet", roster)
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)
	assert.Equal(t, "Apfelwein verschüttet", got.Reason)
	assert.Equal(t, []string{"Carla"}, got.Players)
	assert.Equal(t, models.FineTypeBeverage, got.FineType, "type derived from keywords when missing")
	assert.Equal(t, SourceGemini, got.Source)
}

func TestGeminiSuggesterFallback(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "api error", model: &fakeModel{err: errors.New("quota exceeded")}},
		{name: "empty response", model: &fakeModel{}},
		{name: "unstructured reply", model: &fakeModel{reply: "Sorry."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logging.NewMockLogger()
			s := newGeminiSuggester(tt.model, 0, nil, logger)

			got, err := s.Suggest(context.Background(), "Ben Meier zu spät", roster)
			require.NoError(t, err)
			assert.Equal(t, SourceKeyword, got.Source)
			assert.Equal(t, []string{"Ben Meier"}, got.Players)
			assert.Equal(t, "zu spät", got.Reason)
			assert.True(t, logger.HasEntry("WARN", "Gemini suggestion failed, falling back to keywords"))
		})
	}
}

func TestNewGeminiSuggesterRequiresKey(t *testing.T) {
	_, err := NewGeminiSuggester(context.Background(), GeminiConfig{}, nil, nil)
	assert.Error(t, err)
}
