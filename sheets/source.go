// Package sheets fetches reference data from a Google Sheets spreadsheet.
//
// Information Hiding:
// - Service-account JWT authentication
// - Values API endpoint and response shape
// - Row/cell flattening into prompt-ready text
//
// The data range is the primary resource and its absence is fatal. The
// description range is optional: a missing or failing description degrades
// to an empty string with a warning.

package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"github.com/minase/kotae/retry"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	readOnlyScope  = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// Reference is the fetched reference data.
type Reference struct {
	Data        string
	Description string
}

// Config identifies the spreadsheet and its two sub-resources.
type Config struct {
	SpreadsheetID    string
	DataRange        string
	DescriptionRange string
	CredentialsJSON  []byte
}

// Source reads reference data from the spreadsheet.
type Source struct {
	cfg        Config
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewSource creates a spreadsheet source.
func NewSource(cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client (for tests).
func (s *Source) WithHTTPClient(client *http.Client) *Source {
	s.httpClient = client
	return s
}

// WithBaseURL overrides the API endpoint (for tests).
func (s *Source) WithBaseURL(baseURL string) *Source {
	s.baseURL = baseURL
	return s
}

// Authenticate exchanges the service-account credentials for a bearer token.
func (s *Source) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	jwtConfig, err := google.JWTConfigFromJSON(s.cfg.CredentialsJSON, readOnlyScope)
	if err != nil {
		return nil, retry.Tag(retry.KindClient, fmt.Errorf("invalid service-account credentials: %w", err))
	}

	token, err := jwtConfig.TokenSource(ctx).Token()
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// Fetch reads the data and description sub-resources in parallel with one
// shared token.
func (s *Source) Fetch(ctx context.Context, token *oauth2.Token) (Reference, error) {
	var reference Reference

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := s.fetchRange(gctx, token, s.cfg.DataRange)
		if err != nil {
			return fmt.Errorf("failed to fetch reference data: %w", err)
		}
		if data == "" {
			return retry.Tag(retry.KindClient, fmt.Errorf("reference data range %q is empty", s.cfg.DataRange))
		}
		reference.Data = data
		return nil
	})

	g.Go(func() error {
		if s.cfg.DescriptionRange == "" {
			return nil
		}
		description, err := s.fetchRange(gctx, token, s.cfg.DescriptionRange)
		if err != nil {
			s.logger.Warn("description fetch failed, continuing without it", "error", err)
			return nil
		}
		reference.Description = description
		return nil
	})

	if err := g.Wait(); err != nil {
		return Reference{}, err
	}
	return reference, nil
}

// Load authenticates and fetches in one call, for callers that do not
// manage the token themselves.
func (s *Source) Load(ctx context.Context) (string, string, error) {
	token, err := s.Authenticate(ctx)
	if err != nil {
		return "", "", err
	}
	reference, err := s.Fetch(ctx, token)
	if err != nil {
		return "", "", err
	}
	return reference.Data, reference.Description, nil
}

// valuesResponse is the subset of the Sheets values API response we read.
type valuesResponse struct {
	Values [][]string `json:"values"`
}

// fetchRange reads one A1-notation range and flattens it to text
// (cells tab-separated, rows newline-separated).
func (s *Source) fetchRange(ctx context.Context, token *oauth2.Token, valueRange string) (string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		s.baseURL,
		url.PathEscape(s.cfg.SpreadsheetID),
		url.PathEscape(valueRange),
	)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	token.SetAuthHeader(request)

	response, err := s.httpClient.Do(request)
	if err != nil {
		return "", retry.Tag(retry.KindNetwork, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", retry.Tag(retry.KindNetwork, err)
	}

	if response.StatusCode != http.StatusOK {
		err := fmt.Errorf("values API returned %d for range %q", response.StatusCode, valueRange)
		switch {
		case response.StatusCode == http.StatusTooManyRequests:
			return "", retry.Tag(retry.KindRateLimited, err)
		case response.StatusCode >= 500:
			return "", retry.Tag(retry.KindServer, err)
		default:
			return "", retry.Tag(retry.KindClient, err)
		}
	}

	var values valuesResponse
	if err := json.Unmarshal(body, &values); err != nil {
		return "", fmt.Errorf("failed to decode values response: %w", err)
	}

	return flattenValues(values.Values), nil
}

// flattenValues renders spreadsheet rows as plain text.
func flattenValues(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n")
}
