// Package fhir searches SNOMED CT through a FHIR terminology server.
package fhir

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

const (
	expandPath     = "/ValueSet/$expand"
	contentType    = "application/fhir+json"
	snomedEdition  = "http://snomed.info/sct/900000000000207008"
	defaultTimeout = 10 * time.Second
	retryCount     = 2
)

// Client implements ports.TerminologySearcher over ValueSet/$expand.
// Servers are tried in order until one answers.
type Client struct {
	servers []server
	limiter *rate.Limiter
	logger  *zap.Logger
}

type server struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a client for the configured servers.
func NewClient(cfg config.SNOMEDConfig, logger *zap.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("at least one FHIR server is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	servers := make([]server, 0, len(cfg.Servers))
	for _, base := range cfg.Servers {
		base = strings.TrimRight(base, "/")
		rc := resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetRetryCount(retryCount).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
			}).
			SetHeader("Content-Type", contentType).
			SetHeader("Accept", contentType)
		servers = append(servers, server{baseURL: base, http: rc})
	}

	return &Client{
		servers: servers,
		limiter: newLimiter(cfg.RequestsPerSecond),
		logger:  logger,
	}, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Search expands the SNOMED CT value set filtered by term.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]entities.Concept, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	var errs []error
	for _, s := range c.servers {
		concepts, err := c.expand(ctx, s, term, limit)
		if err == nil {
			return concepts, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("FHIR server failed",
			zap.String("server", s.baseURL),
			zap.String("term", term),
			zap.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.baseURL, err))
	}
	return nil, fmt.Errorf("expanding value set: %w", errors.Join(errs...))
}

func (c *Client) expand(ctx context.Context, s server, term string, limit int) ([]entities.Concept, error) {
	var out valueSet
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(expandRequest(term, limit)).
		SetResult(&out).
		ForceContentType("application/json").
		Post(expandPath)
	if err != nil {
		return nil, fmt.Errorf("calling terminology server: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("terminology server returned status %d", resp.StatusCode())
	}

	c.logger.Debug("FHIR expansion",
		zap.String("server", s.baseURL),
		zap.String("term", term),
		zap.Int("results", len(out.Expansion.Contains)),
	)
	return out.concepts(), nil
}

type parameter struct {
	Name         string `json:"name"`
	ValueURI     string `json:"valueUri,omitempty"`
	ValueString  string `json:"valueString,omitempty"`
	ValueInteger *int   `json:"valueInteger,omitempty"`
	ValueBoolean *bool  `json:"valueBoolean,omitempty"`
}

type parameters struct {
	ResourceType string      `json:"resourceType"`
	Parameter    []parameter `json:"parameter"`
}

func expandRequest(term string, limit int) parameters {
	include := true
	return parameters{
		ResourceType: "Parameters",
		Parameter: []parameter{
			{Name: "url", ValueURI: snomedEdition},
			{Name: "filter", ValueString: term},
			{Name: "count", ValueInteger: &limit},
			{Name: "includeDesignations", ValueBoolean: &include},
		},
	}
}

type valueSet struct {
	Expansion struct {
		Contains []containsEntry `json:"contains"`
	} `json:"expansion"`
}

type containsEntry struct {
	System      string `json:"system"`
	Code        string `json:"code"`
	Display     string `json:"display"`
	Designation []struct {
		Value string `json:"value"`
	} `json:"designation"`
}

func (v valueSet) concepts() []entities.Concept {
	out := make([]entities.Concept, 0, len(v.Expansion.Contains))
	for _, c := range v.Expansion.Contains {
		if c.Code == "" {
			continue
		}
		system := c.System
		if system == "" {
			system = entities.SystemSNOMED
		}

		synonyms := []string{c.Display}
		for _, d := range c.Designation {
			if d.Value != "" && !slices.Contains(synonyms, d.Value) {
				synonyms = append(synonyms, d.Value)
			}
		}

		out = append(out, entities.Concept{
			Code:     c.Code,
			Display:  c.Display,
			System:   system,
			Synonyms: synonyms,
		})
	}
	return out
}
