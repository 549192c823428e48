package dto

import "github.com/noah-isme/sma-finance-api/internal/models"

// ReportRequest captures the POST /reports/finance payload.
type ReportRequest struct {
	Type      models.ReportType   `json:"type"`
	Format    models.ReportFormat `json:"format"`
	StartDate *string             `json:"startDate,omitempty"`
	EndDate   *string             `json:"endDate,omitempty"`
	StudentID *string             `json:"studentId,omitempty"`
	Status    *string             `json:"status,omitempty"`
	HeadID    *string             `json:"headId,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
