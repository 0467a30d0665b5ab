package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"

	"github.com/yourusername/tradestats/internal/models"
)

// maxBodyBytes bounds the size of a downloaded dataset.
var maxBodyBytes int64 = 64 << 20

// HTTPSource downloads a trade export. CSV bodies are parsed like files;
// application/json bodies must be an array of objects keyed by column name.
type HTTPSource struct {
	client    *RateLimitedHTTPClient
	url       string
	authToken string
}

// NewHTTPSource creates a source fetching url. authToken, when set, is sent
// as a bearer token.
func NewHTTPSource(client *RateLimitedHTTPClient, url, authToken string) *HTTPSource {
	return &HTTPSource{client: client, url: url, authToken: authToken}
}

// Name returns the source name
func (s *HTTPSource) Name() string {
	return "http:" + s.url
}

// Load fetches and parses the dataset
func (s *HTTPSource) Load(ctx context.Context) (*models.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, NewSourceError(s.Name(), ErrCodeNetworkError, "request failed", fmt.Errorf("%w: %v", ErrNetworkError, err))
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, NewSourceError(s.Name(), ErrCodeNetworkError, "failed to read body", fmt.Errorf("%w: %v", ErrNetworkError, err))
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, NewSourceError(s.Name(), ErrCodeInvalidData,
			fmt.Sprintf("body exceeds %d bytes", maxBodyBytes), ErrInvalidData)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return parseJSONRecords(body, s.Name())
	}
	return ReadCSV(bytes.NewReader(body), s.Name())
}

// Close releases idle connections
func (s *HTTPSource) Close() error {
	return s.client.Close()
}

func (s *HTTPSource) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewSourceError(s.Name(), ErrCodeAuthenticationFailed, resp.Status, ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusNotFound:
		return NewSourceError(s.Name(), ErrCodeNotFound, resp.Status, ErrNotFound)
	case resp.StatusCode >= 500:
		return NewSourceError(s.Name(), ErrCodeServerError, resp.Status, ErrServerError)
	case resp.StatusCode >= 300:
		return NewSourceError(s.Name(), ErrCodeUnknown, resp.Status, nil)
	}
	return nil
}

// parseJSONRecords converts an array of objects into a dataset. Columns are the
// union of object keys in sorted order. Numbers stay json.Number so integer
// epoch timestamps keep their integer form.
func parseJSONRecords(body []byte, source string) (*models.Dataset, error) {
	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, NewSourceError(source, ErrCodeInvalidData, "expected a JSON array of objects", fmt.Errorf("%w: %v", ErrInvalidData, err))
	}

	seen := make(map[string]bool)
	columns := make([]string, 0)
	rows := make([]models.RawRow, 0, len(records))
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows = append(rows, models.RawRow(rec))
	}
	sort.Strings(columns)

	return &models.Dataset{Source: source, Columns: columns, Rows: rows}, nil
}
