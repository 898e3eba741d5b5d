// Package openai provides a NER model backed by an OpenAI chat model.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

const defaultModel = "gpt-4o-mini"

const recognitionPrompt = `You are a clinical named entity recognizer for Brazilian Portuguese medical text.
Find every clinical entity in the given text and label it with one of:
SYMPTOM, DISEASE, MEDICATION, PROCEDURE, ANATOMY

For each entity return:
- word: the exact text as it appears in the input (same case and accents)
- entity: the label, prefixed with B-
- score: how confident you are (0.0-1.0)

Return ONLY a valid JSON array in order of appearance, no other text.

Example:
Input: "Paciente com dor torácica, em uso de aspirina."
Output: [
  {"word": "dor torácica", "entity": "B-SYMPTOM", "score": 0.97},
  {"word": "aspirina", "entity": "B-MEDICATION", "score": 0.95}
]`

// Loader loads a chat model for entity recognition. The configured model is
// tried first, then each alternative in order.
type Loader struct {
	client *openai.Client
	models []string
	logger *zap.Logger
}

// NewLoader creates a new loader.
func NewLoader(cfg config.NERConfig, logger *zap.Logger) (*Loader, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := defaultModel
	if cfg.Model != "" {
		model = cfg.Model
	}
	models := []string{model}
	for _, alt := range cfg.Alternatives {
		if alt != "" && alt != model {
			models = append(models, alt)
		}
	}

	return &Loader{
		client: openai.NewClientWithConfig(clientCfg),
		models: models,
		logger: logger,
	}, nil
}

// Load returns the first model the endpoint reports as available.
func (l *Loader) Load(ctx context.Context) (ports.NERModel, error) {
	var errs []error
	for _, name := range l.models {
		if _, err := l.client.GetModel(ctx, name); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.logger.Warn("NER model not available", zap.String("model", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("model %s: %w", name, err))
			continue
		}
		return &Model{client: l.client, name: name}, nil
	}
	return nil, fmt.Errorf("no NER model available: %w", errors.Join(errs...))
}

// Model implements ports.NERModel with chat completions.
type Model struct {
	client *openai.Client
	name   string
}

// Name returns the model identifier.
func (m *Model) Name() string {
	return m.name
}

// Predict asks the model for entities and anchors each one in text.
func (m *Model) Predict(ctx context.Context, text string) ([]entities.TokenPrediction, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.name,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: recognitionPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var raw []rawPrediction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parsing predictions JSON: %w (response: %s)", err, content)
	}

	return anchorPredictions(raw, text), nil
}

// rawPrediction is the JSON structure returned by the model.
type rawPrediction struct {
	Word   string  `json:"word"`
	Entity string  `json:"entity"`
	Score  float64 `json:"score"`
}

// anchorPredictions computes byte offsets for each predicted word. Models do
// not count bytes reliably, so words are located in text in order of
// appearance; words that cannot be found are dropped.
func anchorPredictions(raw []rawPrediction, text string) []entities.TokenPrediction {
	out := make([]entities.TokenPrediction, 0, len(raw))
	cursor := 0
	for _, r := range raw {
		word := strings.TrimSpace(r.Word)
		if word == "" {
			continue
		}

		start := strings.Index(text[cursor:], word)
		if start >= 0 {
			start += cursor
		} else {
			// Out of order or repeated: search from the beginning.
			start = strings.Index(text, word)
		}
		if start < 0 {
			continue
		}

		end := start + len(word)
		out = append(out, entities.TokenPrediction{
			Word:  word,
			Tag:   r.Entity,
			Start: start,
			End:   end,
			Score: r.Score,
		})
		if end > cursor {
			cursor = end
		}
	}
	return out
}

// cleanJSONResponse removes markdown code blocks if present.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}

	return strings.TrimSpace(content)
}
