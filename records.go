package main

import (
	"context"
	"fmt"
)

// Column names are matched exactly, case included.
const (
	ColumnName       = "Name"
	ColumnPhone      = "Phone Number"
	ColumnMessage    = "Message"
	ColumnCampaignID = "Campaign ID"
)

// ContactRecord is one row of the contacts table.
type ContactRecord struct {
	DisplayName   string
	DestinationID string
	CampaignKey   string
	RawMessage    string
}

// Templates maps a campaign key to its message body. Built once before the
// loop and only read afterwards.
type Templates map[string]string

// LoadContacts reads the contacts table and decodes it for the given mode.
func LoadContacts(ctx context.Context, src Source, table, mode string) ([]ContactRecord, error) {
	rows, err := src.Rows(ctx, table)
	if err != nil {
		return nil, err
	}

	required := []string{ColumnPhone, ColumnMessage}
	if mode == SourceModeCampaign {
		required = []string{ColumnName, ColumnPhone, ColumnCampaignID}
	}
	if err := requireColumns(table, rows, required...); err != nil {
		return nil, err
	}

	records := make([]ContactRecord, 0, len(rows))
	for _, row := range rows {
		rec := ContactRecord{
			DisplayName:   row[ColumnName],
			DestinationID: row[ColumnPhone],
		}
		if mode == SourceModeCampaign {
			rec.CampaignKey = row[ColumnCampaignID]
		} else {
			rec.RawMessage = row[ColumnMessage]
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadTemplates reads the campaign table. A repeated campaign key keeps the
// last row's message.
func LoadTemplates(ctx context.Context, src Source, table string) (Templates, error) {
	rows, err := src.Rows(ctx, table)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(table, rows, ColumnCampaignID, ColumnMessage); err != nil {
		return nil, err
	}

	templates := make(Templates, len(rows))
	for _, row := range rows {
		templates[row[ColumnCampaignID]] = row[ColumnMessage]
	}
	return templates, nil
}

func requireColumns(table string, rows []map[string]string, columns ...string) error {
	if len(rows) == 0 {
		return nil
	}
	for _, col := range columns {
		if _, ok := rows[0][col]; !ok {
			return fmt.Errorf("%w: table %s has no %q column", ErrSourceUnavailable, table, col)
		}
	}
	return nil
}
