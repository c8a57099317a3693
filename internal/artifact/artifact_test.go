package artifact

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/smukkama/store-monitor/internal/report"
)

var sample = []report.Record{
	{LocationID: "s1", UptimeLastHour: 45.5, DowntimeLastHour: 14.5, UptimeLastDay: 20, DowntimeLastDay: 4, UptimeLastWeek: 150.33, DowntimeLastWeek: 17.67},
	{LocationID: "s2", DowntimeLastHour: 60, DowntimeLastDay: 24, DowntimeLastWeek: 168},
}

const header = "store_id,uptime_last_hour,downtime_last_hour,uptime_last_day,downtime_last_day,uptime_last_week,downtime_last_week\n"

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample))

	want := header +
		"s1,45.5,14.5,20,4,150.33,17.67\n" +
		"s2,0,60,0,24,0,168\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, header, buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, report.Columns, rows[0])
	assert.Equal(t, "s1", rows[1][0])
	assert.Equal(t, "150.33", rows[1][5])
	assert.Equal(t, "168", rows[2][6])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFileWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	fw, err := NewFileWriter(dir, FormatCSV)
	require.NoError(t, err)

	path, err := fw.Write(context.Background(), "abc", sample)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "s2,0,60,0,24,0,168")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
	assert.Equal(t, "text/csv", ContentTypeFor(path))
}

func TestFileWriter_XLSXContentType(t *testing.T) {
	fw, err := NewFileWriter(t.TempDir(), FormatXLSX)
	require.NoError(t, err)

	path, err := fw.Write(context.Background(), "abc", nil)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX.ContentType(), ContentTypeFor(path))
	assert.Equal(t, FormatXLSX, fw.Format())
}

func TestFileWriter_RejectsPathLikeIDs(t *testing.T) {
	fw, err := NewFileWriter(t.TempDir(), FormatCSV)
	require.NoError(t, err)

	for _, id := range []string{"", "../x", "a/b", `a\b`} {
		_, err := fw.Write(context.Background(), id, nil)
		assert.Error(t, err, id)
	}
}
