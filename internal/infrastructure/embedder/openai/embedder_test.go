package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/infrastructure/config"
)

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbedderConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			cfg: config.EmbedderConfig{
				APIKey: "test-key",
			},
			wantErr: false,
		},
		{
			name: "valid config with model",
			cfg: config.EmbedderConfig{
				APIKey: "test-key",
				Model:  "text-embedding-ada-002",
			},
			wantErr: false,
		},
		{
			name:    "missing API key",
			cfg:     config.EmbedderConfig{},
			wantErr: true,
			errMsg:  "API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder, err := NewEmbedder(tt.cfg)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, embedder)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, embedder)
			}
		})
	}
}

// embeddingServer answers with one vector per input, [index], in reverse order.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_EmbedBatch_KeepsInputOrder(t *testing.T) {
	srv := embeddingServer(t)
	e, err := NewEmbedder(config.EmbedderConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	vectors, err := e.EmbedBatch(t.Context(), []string{"Febre", "Tosse", "Dispneia"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}, {2}}, vectors)
}

func TestEmbedder_Embed(t *testing.T) {
	srv := embeddingServer(t)
	e, err := NewEmbedder(config.EmbedderConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	vector, err := e.Embed(t.Context(), "Febre")

	require.NoError(t, err)
	assert.Equal(t, []float32{0}, vector)
}

func TestEmbedder_EmbedBatch_Empty(t *testing.T) {
	e, err := NewEmbedder(config.EmbedderConfig{APIKey: "test-key"})
	require.NoError(t, err)

	vectors, err := e.EmbedBatch(t.Context(), nil)

	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestVectorSize(t *testing.T) {
	assert.Equal(t, 1536, VectorSize)
}
