package fhir

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/domain/ports"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

var _ ports.TerminologySearcher = (*Client)(nil)

const expansionBody = `{
  "resourceType": "ValueSet",
  "expansion": {
    "contains": [
      {
        "system": "http://snomed.info/sct",
        "code": "267036007",
        "display": "Dispneia",
        "designation": [
          {"value": "Dispneia"},
          {"value": "Falta de ar"},
          {"value": ""}
        ]
      },
      {"code": "230145002", "display": "Dificuldade respiratória"},
      {"display": "sem código"}
    ]
  }
}`

// terminologyServer records the last request body and answers with body.
func terminologyServer(t *testing.T, status int, body string, hits *atomic.Int32, got *parameters) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fhir/ValueSet/$expand", r.URL.Path)
		assert.Equal(t, contentType, r.Header.Get("Accept"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, servers ...string) *Client {
	t.Helper()
	c, err := NewClient(config.SNOMEDConfig{Servers: servers, TimeoutSeconds: 2}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresServer(t *testing.T) {
	_, err := NewClient(config.SNOMEDConfig{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one FHIR server")
}

func TestClient_Search(t *testing.T) {
	var got parameters
	srv := terminologyServer(t, http.StatusOK, expansionBody, nil, &got)
	c := newTestClient(t, srv.URL+"/fhir/")

	concepts, err := c.Search(t.Context(), "dispneia", 5)

	require.NoError(t, err)
	require.Len(t, concepts, 2, "entries without a code are dropped")
	assert.Equal(t, entities.Concept{
		Code:     "267036007",
		Display:  "Dispneia",
		System:   entities.SystemSNOMED,
		Synonyms: []string{"Dispneia", "Falta de ar"},
	}, concepts[0])
	assert.Equal(t, entities.SystemSNOMED, concepts[1].System, "missing system defaults to SNOMED")

	assert.Equal(t, "Parameters", got.ResourceType)
	require.Len(t, got.Parameter, 4)
	assert.Equal(t, snomedEdition, got.Parameter[0].ValueURI)
	assert.Equal(t, "dispneia", got.Parameter[1].ValueString)
	require.NotNil(t, got.Parameter[2].ValueInteger)
	assert.Equal(t, 5, *got.Parameter[2].ValueInteger)
	require.NotNil(t, got.Parameter[3].ValueBoolean)
	assert.True(t, *got.Parameter[3].ValueBoolean)
}

func TestClient_Search_FallsThroughServers(t *testing.T) {
	var badHits atomic.Int32
	bad := terminologyServer(t, http.StatusBadRequest, `{"resourceType":"OperationOutcome"}`, &badHits, nil)
	good := terminologyServer(t, http.StatusOK, expansionBody, nil, nil)
	c := newTestClient(t, bad.URL+"/fhir", good.URL+"/fhir")

	concepts, err := c.Search(t.Context(), "dispneia", 5)

	require.NoError(t, err)
	assert.Len(t, concepts, 2)
	assert.Equal(t, int32(1), badHits.Load(), "client errors are not retried")
}

func TestClient_Search_AllServersFail(t *testing.T) {
	bad := terminologyServer(t, http.StatusNotFound, `{}`, nil, nil)
	c := newTestClient(t, bad.URL+"/fhir")

	_, err := c.Search(t.Context(), "dispneia", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expanding value set")
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_Search_ServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := terminologyServer(t, http.StatusServiceUnavailable, `{}`, &hits, nil)
	c := newTestClient(t, srv.URL+"/fhir")

	_, err := c.Search(t.Context(), "dispneia", 5)

	require.Error(t, err)
	assert.GreaterOrEqual(t, hits.Load(), int32(1))
}

func TestClient_Search_Cancelled(t *testing.T) {
	srv := terminologyServer(t, http.StatusOK, expansionBody, nil, nil)
	c := newTestClient(t, srv.URL+"/fhir")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := c.Search(ctx, "dispneia", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, 5.0, float64(newLimiter(5).Limit()))
	assert.True(t, newLimiter(0).Allow())
	assert.True(t, newLimiter(0).Allow())
}
