package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReportRequest(t *testing.T) {
	req, err := DecodeReportRequest([]byte(`{"report_id":"r-1","requested_at":"2023-01-25T18:13:22Z","max_locations":25}`))
	require.NoError(t, err)
	assert.Equal(t, "r-1", req.ReportID)
	assert.Equal(t, 25, req.MaxLocations)
	assert.True(t, req.RequestedAt.Equal(time.Date(2023, 1, 25, 18, 13, 22, 0, time.UTC)))
}

func TestDecodeReportRequest_Invalid(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":     `report`,
		"missing id":   `{"max_locations":3}`,
		"negative max": `{"report_id":"r-1","max_locations":-1}`,
	} {
		_, err := DecodeReportRequest([]byte(payload))
		assert.Error(t, err, name)
	}
}

func TestEncodeReportRequestOmitsDefaultLimit(t *testing.T) {
	data, err := EncodeReportRequest(&ReportRequest{ReportID: "r-1", RequestedAt: time.Date(2023, 1, 25, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"report_id":"r-1","requested_at":"2023-01-25T00:00:00Z"}`, string(data))
}
