// Package sheets talks to the Google Sheets backend: the worklist that feeds
// the batch driver and the two destination sheets receiving tender rows.
package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Values is the narrow slice of the spreadsheet API the pipeline needs.
// The production implementation is backed by the Sheets API; tests supply fakes.
type Values interface {
	Get(ctx context.Context, readRange string) ([][]any, error)
	Append(ctx context.Context, writeRange string, values [][]any) error
	Update(ctx context.Context, cellRange string, values [][]any) error
}

type googleValues struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewValues builds a Values implementation from a service-account key file.
func NewValues(ctx context.Context, credentialsFile, spreadsheetID string) (Values, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading sheets credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing sheets credentials: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &googleValues{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *googleValues) Get(ctx context.Context, readRange string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleValues) Append(ctx context.Context, writeRange string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.
		Append(g.spreadsheetID, writeRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *googleValues) Update(ctx context.Context, cellRange string, values [][]any) error {
	_, err := g.svc.Spreadsheets.Values.
		Update(g.spreadsheetID, cellRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}
