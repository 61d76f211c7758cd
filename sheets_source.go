package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/auth"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads tables from Google Sheets. Table names have the form
// "<spreadsheetID>/<sheet>", see SheetsTable.
type SheetsSource struct {
	svc *sheets.Service
}

// SheetsTable builds the table name SheetsSource.Rows expects.
func SheetsTable(spreadsheetID, sheet string) string {
	return spreadsheetID + "/" + sheet
}

// ServiceAccountCredentials loads a service-account key file and returns the
// client option carrying it.
func ServiceAccountCredentials(path string) (option.ClientOption, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: no service-account key file configured", ErrAuthFailure)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read service-account key file: %w", ErrAuthFailure, err)
	}

	var key struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("%w: key file %s is not valid JSON: %w", ErrAuthFailure, path, err)
	}
	if key.Type != "service_account" || key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("%w: key file %s is not a service-account key", ErrAuthFailure, path)
	}

	return option.WithCredentialsJSON(data), nil
}

func NewSheetsSource(ctx context.Context, opts ...option.ClientOption) (*SheetsSource, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create sheets client: %w", ErrAuthFailure, err)
	}
	return &SheetsSource{svc: svc}, nil
}

func (s *SheetsSource) Rows(ctx context.Context, table string) ([]map[string]string, error) {
	spreadsheetID, sheet, ok := strings.Cut(table, "/")
	if !ok || spreadsheetID == "" || sheet == "" {
		return nil, fmt.Errorf("%w: malformed sheets table %q", ErrSourceUnavailable, table)
	}

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, sheetRange(sheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifySheetsError(table, err)
	}

	grid := make([][]string, len(resp.Values))
	for i, cells := range resp.Values {
		grid[i] = make([]string, len(cells))
		for j, cell := range cells {
			grid[i][j] = cellString(cell)
		}
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrSourceUnavailable, table)
	}
	return rowsFromGrid(grid), nil
}

func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// Unformatted numbers, e.g. phone numbers typed without a leading +.
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// sheetRange quotes a sheet name for A1 notation.
func sheetRange(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func classifySheetsError(table string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: access to %s denied: %w", ErrAuthFailure, table, err)
		case http.StatusNotFound, http.StatusBadRequest:
			return fmt.Errorf("%w: %s not found: %w", ErrSourceUnavailable, table, err)
		}
	}
	// Token exchange failures surface as transport errors, not API errors.
	if tokenRejected(err) {
		return fmt.Errorf("%w: token exchange for %s failed: %w", ErrAuthFailure, table, err)
	}
	return fmt.Errorf("%w: failed to read %s: %w", ErrSourceUnavailable, table, err)
}

// tokenRejected reports whether err is the token endpoint refusing the
// service account. Server errors from the token endpoint are not rejections.
func tokenRejected(err error) bool {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr.Response == nil || authErr.Response.StatusCode < http.StatusInternalServerError
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response == nil || retrieveErr.Response.StatusCode < http.StatusInternalServerError
	}
	return false
}
