package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseBasic(t *testing.T) {
	sheet := Parse("name,email\nAlice,alice@example.com\nBob,bob@example.com\n")

	if got := sheet.RowCount(); got != 2 {
		t.Fatalf("RowCount() = %d, want 2", got)
	}
	if sheet.Rows[0]["name"] != "Alice" || sheet.Rows[0]["email"] != "alice@example.com" {
		t.Errorf("unexpected first row: %v", sheet.Rows[0])
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	sheet := Parse(" name , email \n Alice , alice@example.com ")

	if sheet.Headers[0] != "name" || sheet.Headers[1] != "email" {
		t.Errorf("headers not trimmed: %v", sheet.Headers)
	}
	if sheet.Rows[0]["email"] != "alice@example.com" {
		t.Errorf("values not trimmed: %v", sheet.Rows[0])
	}
}

func TestParseNormalizesCRLF(t *testing.T) {
	sheet := Parse("name,email\r\nAlice,alice@example.com\r\n")

	if got := sheet.RowCount(); got != 1 {
		t.Fatalf("RowCount() = %d, want 1", got)
	}
	if sheet.Rows[0]["name"] != "Alice" {
		t.Errorf("unexpected row: %v", sheet.Rows[0])
	}
}

func TestParseRaggedRows(t *testing.T) {
	sheet := Parse("name,email,company\nAlice,alice@example.com\nBob,bob@example.com,Acme,extra")

	// Short rows pad with ""
	if got := sheet.Rows[0]["company"]; got != "" {
		t.Errorf("short row company = %q, want empty", got)
	}
	// Long rows drop values past the last header
	if got := sheet.Rows[1]["company"]; got != "Acme" {
		t.Errorf("long row company = %q, want Acme", got)
	}
	if len(sheet.Rows[1]) != 3 {
		t.Errorf("long row has %d cells, want 3", len(sheet.Rows[1]))
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	sheet := Parse("name,email\nAlice,alice@example.com\n\n  \nBob,bob@example.com\n")

	if got := sheet.RowCount(); got != 2 {
		t.Errorf("RowCount() = %d, want 2", got)
	}
}

// Quoted fields are split on every comma. The naive split is the documented
// contract, so pin the behavior down.
func TestParseSplitsInsideQuotes(t *testing.T) {
	sheet := Parse("name,email\n\"Smith, Alice\",alice@example.com")

	if got := sheet.Rows[0]["name"]; got != `"Smith` {
		t.Errorf("quoted name = %q, want %q", got, `"Smith`)
	}
	if got := sheet.Rows[0]["email"]; got != `Alice"` {
		t.Errorf("email column = %q, want %q", got, `Alice"`)
	}
}

func TestEmailColumnFirstMatch(t *testing.T) {
	tests := []struct {
		name    string
		headers string
		want    string
	}{
		{"exact", "name,email,company", "email"},
		{"case_insensitive", "name,Email,company", "Email"},
		{"substring", "name,work_email,personal_email", "work_email"},
		{"none", "name,company", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := Parse(tt.headers + "\n")
			if got := sheet.EmailColumn(); got != tt.want {
				t.Errorf("EmailColumn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("name,email\nAlice,alice@example.com"))
	}))
	defer srv.Close()

	sheet, err := NewFetcher(nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := sheet.RowCount(); got != 1 {
		t.Errorf("RowCount() = %d, want 1", got)
	}
}

func TestFetchNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(nil).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("Fetch() error = %v, want ErrFetch", err)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewFetcher(nil).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("Fetch() error = %v, want ErrFetch", err)
	}
}
