// Package ingest fetches and parses recipient sheets. Parsing is a naive
// comma split: quoted fields with embedded commas or newlines are not
// supported, matching the upload contract.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrFetch is wrapped by every fetch failure, transport or HTTP status.
var ErrFetch = errors.New("failed to fetch sheet")

// Row maps header name to the cell value in that column.
type Row map[string]string

// Sheet is a parsed recipient sheet.
type Sheet struct {
	Headers []string
	Rows    []Row
}

// RowCount returns the number of data rows.
func (s *Sheet) RowCount() int {
	return len(s.Rows)
}

// EmailColumn returns the first header containing "email"
// case-insensitively, or "" when no header matches.
func (s *Sheet) EmailColumn() string {
	for _, h := range s.Headers {
		if strings.Contains(strings.ToLower(h), "email") {
			return h
		}
	}
	return ""
}

// Fetcher retrieves sheets over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client falls back to
// http.DefaultClient.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// Fetch downloads and parses the sheet at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Sheet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	return Parse(string(body)), nil
}

// Parse splits text into a Sheet. The first line is the header row; every
// subsequent non-empty line becomes one Row zipped positionally against the
// headers. Missing trailing values become "". Extra values past the last
// header are dropped.
func Parse(text string) *Sheet {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var headers []string
	var rows []Row

	for i, line := range lines {
		if i == 0 {
			for _, h := range strings.Split(line, ",") {
				headers = append(headers, strings.TrimSpace(h))
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := strings.Split(line, ",")
		row := make(Row, len(headers))
		for j, h := range headers {
			if j < len(values) {
				row[h] = strings.TrimSpace(values[j])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Sheet{Headers: headers, Rows: rows}
}
