package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReportRequest is the message format for report generation requests on Kafka
type ReportRequest struct {
	ReportID     string    `json:"report_id"`
	RequestedAt  time.Time `json:"requested_at"`
	MaxLocations int       `json:"max_locations,omitempty"` // 0 uses the worker default
}

// EncodeReportRequest encodes a ReportRequest to JSON
func EncodeReportRequest(req *ReportRequest) ([]byte, error) {
	return json.Marshal(req)
}

// DecodeReportRequest decodes JSON to ReportRequest
func DecodeReportRequest(data []byte) (*ReportRequest, error) {
	var req ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.ReportID == "" {
		return nil, fmt.Errorf("report_id is required")
	}
	if req.MaxLocations < 0 {
		return nil, fmt.Errorf("max_locations must not be negative")
	}
	return &req, nil
}
