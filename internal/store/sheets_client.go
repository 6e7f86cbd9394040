package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tresde/api/internal/config"
)

// googleSheets implements sheetsAPI with the official client.
type googleSheets struct {
	svc           *sheets.Service
	spreadsheetID string
}

func newGoogleSheets(ctx context.Context, cfg config.SheetsConfig) (*googleSheets, error) {
	creds, err := serviceAccountJSON(cfg.ServiceAccountEmail, cfg.PrivateKey, "")
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &googleSheets{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// serviceAccountJSON assembles a credentials document from the split env
// variables the deployment provides.
func serviceAccountJSON(email, privateKey, projectID string) ([]byte, error) {
	doc := map[string]string{
		"type":         "service_account",
		"client_email": email,
		"private_key":  privateKey,
		"token_uri":    "https://oauth2.googleapis.com/token",
	}
	if projectID != "" {
		doc["project_id"] = projectID
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode service account: %w", err)
	}
	return raw, nil
}

func (g *googleSheets) GetValues(ctx context.Context, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		if isGoogleBadRequest(err, "unable to parse range") {
			return nil, errSheetMissing
		}
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleSheets) AppendRow(ctx context.Context, rng string, row []any) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *googleSheets) UpdateRow(ctx context.Context, rng string, row []any) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleSheets) SheetID(ctx context.Context, title string) (int64, bool, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, err
	}
	for _, sheet := range ss.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

func (g *googleSheets) AddSheet(ctx context.Context, title string, rows, columns int) error {
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    int64(rows),
						ColumnCount: int64(columns),
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil && isGoogleBadRequest(err, "already exists") {
		return errSheetExists
	}
	return err
}

func (g *googleSheets) DeleteRow(ctx context.Context, sheetID int64, row int) error {
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// Sheet 0 is the first tab; without this the id is omitted.
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}).Context(ctx).Do()
	return err
}

func (g *googleSheets) ping(ctx context.Context) error {
	_, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

func isGoogleBadRequest(err error, fragment string) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(gerr.Message), fragment)
}
