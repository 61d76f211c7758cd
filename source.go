package main

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrAuthFailure means credentials for the data source could not be
	// established or were rejected.
	ErrAuthFailure = errors.New("auth failure")
	// ErrSourceUnavailable means the data source could not be reached or the
	// named table does not exist or lacks an expected column.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Source returns the rows of a named table, in order, as maps from exact
// header text to cell value.
type Source interface {
	Rows(ctx context.Context, table string) ([]map[string]string, error)
}

// rowsFromGrid converts a header row plus data rows into column maps. Short
// rows are padded with empty values and rows with no content are dropped.
func rowsFromGrid(grid [][]string) []map[string]string {
	if len(grid) == 0 {
		return nil
	}

	header := make([]string, len(grid[0]))
	for i, col := range grid[0] {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]map[string]string, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(map[string]string, len(header))
		empty := true
		for i, col := range header {
			if col == "" {
				continue
			}
			var value string
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			if value != "" {
				empty = false
			}
			row[col] = value
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
