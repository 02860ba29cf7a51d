// Package google exports projection snapshots to a Google Sheet, one
// row per projected due. The sheet is a rendering target, never a data
// source: rows are appended and the projection stays recomputable.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/plataformas-safastway/meu-din-em-casa-sub007/internal/amqp"
)

type ReportWriter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewReportWriter creates a Sheets client from service account
// credentials. Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewReportWriter(ctx context.Context, spreadsheetID, sheetName string) (*ReportWriter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &ReportWriter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendSnapshot writes every item of a snapshot as a row. Pending
// amounts render as the literal "pending" so a blank cell never hides a
// card invoice.
func (w *ReportWriter) AppendSnapshot(ctx context.Context, msg *amqp.ProjectionSnapshotMessage) error {
	if w.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(msg.Items) == 0 {
		slog.InfoContext(ctx, "Snapshot has no items, nothing to export", "family_id", msg.FamilyID)
		return nil
	}

	rows := make([][]any, 0, len(msg.Items))
	for _, item := range msg.Items {
		amount := "pending"
		if item.AmountCents != nil {
			amount = fmt.Sprintf("%.2f", float64(*item.AmountCents)/100.0)
		}
		rows = append(rows, []any{
			msg.FamilyID,
			msg.ReferenceDate.Format("2006-01-02"),
			item.Name,
			item.Type,
			amount,
			item.DueDate,
			item.DaysUntilDue,
			item.Status,
		})
	}

	rng := fmt.Sprintf("%s!A:H", w.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append snapshot rows to sheet %s: %w", w.sheetName, err)
	}

	slog.InfoContext(ctx, "Snapshot exported to Google Sheets",
		"family_id", msg.FamilyID,
		"rows", len(rows),
		"sheet", w.sheetName)
	return nil
}
