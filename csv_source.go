package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSource reads tables from local CSV files; the table name is the file
// path. The first record is the header.
type CSVSource struct{}

func (CSVSource) Rows(_ context.Context, table string) ([]map[string]string, error) {
	file, err := os.Open(table)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open CSV file: %w", ErrSourceUnavailable, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	// Rows shorter than the header are allowed; missing cells read as empty.
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV file: %w", ErrSourceUnavailable, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: CSV file %s is empty", ErrSourceUnavailable, table)
	}

	return rowsFromGrid(records), nil
}
