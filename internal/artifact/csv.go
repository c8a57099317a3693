package artifact

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/smukkama/store-monitor/internal/report"
)

// WriteCSV writes the header followed by one line per record.
// The header is written even when there are no records.
func WriteCSV(w io.Writer, records []report.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(report.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(report.Columns))
	for _, rec := range records {
		row[0] = rec.LocationID
		for i, v := range rec.Values() {
			row[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", rec.LocationID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
