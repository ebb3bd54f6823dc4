// Package metadata reads the authoritative metadata table, a saved Look
// whose rows pair groups with user attribute values per environment.
//
// The Look is fetched as tab-delimited text rather than JSON or CSV because
// attribute values may contain commas and quotes, while a tab never occurs
// in legitimate data.
package metadata

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
)

// Row maps a normalized column name to its value.
type Row map[string]string

// Get returns the value for column, or "" when absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Columns returns the row's column names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// NormalizeColumn lowercases name and replaces spaces with underscores, so
// "Dealerware OEM Metadata URL Dev" becomes "dealerware_oem_metadata_url_dev".
func NormalizeColumn(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Parse converts tab-delimited text into rows. The first line is the header.
// A row whose field count differs from the header's fails the whole parse.
func Parse(text string) ([]Row, error) {
	// Only line breaks are trimmed; trailing tabs are empty last columns.
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewParseError(constants.MetadataResultFormat, "", "empty table", nil)
	}

	lines := strings.Split(text, "\n")
	header := strings.Split(strings.TrimSuffix(lines[0], "\r"), "\t")
	for i, h := range header {
		header[i] = NormalizeColumn(h)
	}

	rows := make([]Row, 0, len(lines)-1)
	for i, line := range lines[1:] {
		fields := strings.Split(strings.TrimSuffix(line, "\r"), "\t")
		if len(fields) != len(header) {
			return nil, &errors.ParseError{
				Format:  constants.MetadataResultFormat,
				Source:  "metadata table",
				Line:    i + 2,
				Message: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)),
			}
		}
		row := make(Row, len(header))
		for j, col := range header {
			row[col] = fields[j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LookRunner runs a saved Look and returns its raw result.
type LookRunner interface {
	RunLook(ctx context.Context, lookID int64, format string) (string, error)
}

// Reader pulls the metadata table from a Looker instance.
type Reader struct {
	runner LookRunner
	lookID int64
}

// NewReader returns a Reader for the given Look. A non-positive lookID
// selects constants.MetadataLookID.
func NewReader(runner LookRunner, lookID int64) *Reader {
	if lookID <= 0 {
		lookID = constants.MetadataLookID
	}
	return &Reader{runner: runner, lookID: lookID}
}

// LookID returns the Look the reader pulls from.
func (r *Reader) LookID() int64 { return r.lookID }

// Read runs the Look and parses the result.
func (r *Reader) Read(ctx context.Context) ([]Row, error) {
	text, err := r.runner.RunLook(ctx, r.lookID, constants.MetadataResultFormat)
	if err != nil {
		return nil, err
	}

	rows, err := Parse(text)
	if err != nil {
		var pe *errors.ParseError
		if stderrors.As(err, &pe) {
			pe.Source = fmt.Sprintf("look %d", r.lookID)
		}
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Int64("look_id", r.lookID).
		Int("rows", len(rows)).
		Msg("Read metadata table")
	return rows, nil
}
