package worklist

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
)

// requiredHeaders must be present in an imported worklist.
var requiredHeaders = []string{"name", "email", "location"}

// ImportCSV appends the people of a spreadsheet export to store. Headers are
// matched case-insensitively; the status column is optional. Blank rows are
// skipped. It returns the number of people added.
func ImportCSV(ctx context.Context, store Store, r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := idx[h]; !ok {
			return 0, fmt.Errorf("required column %q not found in header %v", h, header)
		}
	}
	statusCol, hasStatus := idx["status"]

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	added := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return added, fmt.Errorf("read row %d: %w", added+2, err)
		}
		p := profile.Person{
			Name:     cell(row, idx["name"]),
			Email:    cell(row, idx["email"]),
			Location: cell(row, idx["location"]),
		}
		if p.Name == "" && p.Email == "" && p.Location == "" {
			continue
		}
		status := StatusPending
		if hasStatus {
			status = cell(row, statusCol)
		}
		if _, err := store.AddPerson(ctx, p, status); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// ExportCSV writes every result row to w under the Columns header.
func ExportCSV(ctx context.Context, store Store, w io.Writer) error {
	results, err := store.Results(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write row for %q: %w", r.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
