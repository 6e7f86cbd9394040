package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func TestIsGoogleBadRequest(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fragment string
		want     bool
	}{
		{"missing sheet range", &googleapi.Error{Code: 400, Message: "Unable to parse range: Marcas!A2:G"}, "unable to parse range", true},
		{"wrapped", fmt.Errorf("get values: %w", &googleapi.Error{Code: 400, Message: "Unable to parse range: x"}), "unable to parse range", true},
		{"duplicate sheet", &googleapi.Error{Code: 400, Message: `Invalid requests[0].addSheet: A sheet with the name "Marcas" already exists.`}, "already exists", true},
		{"other bad request", &googleapi.Error{Code: 400, Message: "Invalid value at 'data.values'"}, "unable to parse range", false},
		{"not a bad request", &googleapi.Error{Code: 403, Message: "Unable to parse range: x"}, "unable to parse range", false},
		{"plain error", errors.New("unable to parse range"), "unable to parse range", false},
		{"nil", nil, "already exists", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGoogleBadRequest(tt.err, tt.fragment); got != tt.want {
				t.Fatalf("isGoogleBadRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestGoogleSheets(t *testing.T, handler http.HandlerFunc) *googleSheets {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return &googleSheets{svc: svc, spreadsheetID: "sheet-1"}
}

func writeGoogleError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"status":"INVALID_ARGUMENT"}}`, code, message)
}

func TestGoogleSheetsMapsMissingAndDuplicateSheets(t *testing.T) {
	api := newTestGoogleSheets(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			writeGoogleError(w, http.StatusBadRequest, "Unable to parse range: Marcas!A2:G")
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			writeGoogleError(w, http.StatusBadRequest, `Invalid requests[0].addSheet: A sheet with the name "Marcas" already exists. Please enter another name.`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	if _, err := api.GetValues(ctx, "Marcas!A2:G"); !errors.Is(err, errSheetMissing) {
		t.Fatalf("expected errSheetMissing, got %v", err)
	}
	if err := api.AddSheet(ctx, "Marcas", 1000, 7); !errors.Is(err, errSheetExists) {
		t.Fatalf("expected errSheetExists, got %v", err)
	}
}

func TestGoogleSheetsPassesThroughOtherErrors(t *testing.T) {
	api := newTestGoogleSheets(t, func(w http.ResponseWriter, r *http.Request) {
		writeGoogleError(w, http.StatusForbidden, "The caller does not have permission")
	})
	ctx := context.Background()

	_, err := api.GetValues(ctx, "Marcas!A2:G")
	var gerr *googleapi.Error
	if errors.Is(err, errSheetMissing) || !errors.As(err, &gerr) || gerr.Code != http.StatusForbidden {
		t.Fatalf("expected the 403 to surface unchanged, got %v", err)
	}
	if err := api.AddSheet(ctx, "Marcas", 1000, 7); err == nil || errors.Is(err, errSheetExists) {
		t.Fatalf("expected the 403 to surface unchanged, got %v", err)
	}
}

func TestGoogleSheetsReadsValues(t *testing.T) {
	api := newTestGoogleSheets(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("valueRenderOption") != "UNFORMATTED_VALUE" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"range":"Gemelos!A2:H","values":[["1","Casa","d"]]}`)
	})
	rows, err := api.GetValues(context.Background(), "Gemelos!A2:H")
	if err != nil {
		t.Fatalf("get values: %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "Casa" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
