package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/mocks"
)

func TestEntityRecognizer_Recognize(t *testing.T) {
	text := "Paciente apresenta dor torácica aguda e dispneia."
	workingNER := NewNERService(&mocks.NERLoader{Model: &mocks.NERModel{
		ModelName: "m",
		Predictions: []entities.TokenPrediction{
			{Word: "dispneia", Tag: "B-SYMPTOM", Start: 41, End: 49, Score: 0.95},
		},
	}}, nil, 0, nil)
	brokenNER := NewNERService(&mocks.NERLoader{Err: errors.New("no such model")}, nil, 0, nil)

	tests := []struct {
		name          string
		ner           *NERService
		allowFallback bool
		mode          entities.RecognitionMode
		wantMode      entities.RecognitionMode
		wantTexts     []string
		wantErr       error
	}{
		{
			name:      "default mode uses patterns",
			wantMode:  entities.ModePatterns,
			wantTexts: []string{"dor torácica aguda", "dispneia"},
		},
		{
			name:      "model mode",
			ner:       workingNER,
			mode:      entities.ModeModel,
			wantMode:  entities.ModeModel,
			wantTexts: []string{"dispneia"},
		},
		{
			name:    "model failure without fallback",
			ner:     brokenNER,
			mode:    entities.ModeModel,
			wantErr: ErrModelUnavailable,
		},
		{
			name:          "model failure with fallback",
			ner:           brokenNER,
			allowFallback: true,
			mode:          entities.ModeModel,
			wantMode:      entities.ModePatternFallback,
			wantTexts:     []string{"dor torácica aguda", "dispneia"},
		},
		{
			name:    "no model configured",
			mode:    entities.ModeModel,
			wantErr: ErrModelUnavailable,
		},
		{
			name:          "no model configured with fallback",
			allowFallback: true,
			mode:          entities.ModeModel,
			wantMode:      entities.ModePatternFallback,
			wantTexts:     []string{"dor torácica aguda", "dispneia"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewEntityRecognizer(newTestExtractor(t), tt.ner, tt.allowFallback, nil)

			rec, err := r.Recognize(t.Context(), text, tt.mode)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, rec.Mode)
			assert.Equal(t, tt.wantTexts, texts(rec.Entities))
			assert.Equal(t, tt.wantMode == entities.ModePatternFallback, rec.IsFallback())
			if rec.IsFallback() {
				assert.Contains(t, rec.FallbackReason, ErrModelUnavailable.Error())
			}
		})
	}
}

func TestEntityRecognizer_Recognize_UnknownMode(t *testing.T) {
	r := NewEntityRecognizer(newTestExtractor(t), nil, true, nil)

	_, err := r.Recognize(t.Context(), "febre", "llm")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown recognition mode")
}
