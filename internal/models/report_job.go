package models

import "time"

// ReportType enumerates supported asynchronous finance exports.
type ReportType string

const (
	ReportTypeSummary     ReportType = "summary"
	ReportTypeObligations ReportType = "obligations"
	ReportTypeIncome      ReportType = "income"
	ReportTypeExpenses    ReportType = "expenses"
)

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeSummary, ReportTypeObligations, ReportTypeIncome, ReportTypeExpenses:
		return true
	}
	return false
}

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// Valid reports whether f is a supported export format.
func (f ReportFormat) Valid() bool {
	return f == ReportFormatCSV || f == ReportFormatPDF || f == ReportFormatXLSX
}

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
	ReportStatusExpired    ReportStatus = "EXPIRED"
)

// ReportJob persisted background job metadata.
type ReportJob struct {
	ID           string          `json:"id" bson:"_id"`
	Type         ReportType      `json:"type" bson:"type"`
	Params       ReportJobParams `json:"params" bson:"params"`
	Status       ReportStatus    `json:"status" bson:"status"`
	Progress     int             `json:"progress" bson:"progress"`
	ResultURL    *string         `json:"resultUrl,omitempty" bson:"resultUrl,omitempty"`
	FilePath     *string         `json:"-" bson:"filePath,omitempty"`
	CreatedBy    string          `json:"createdBy" bson:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt" bson:"createdAt"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	ErrorMessage *string         `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	Version      int64           `json:"version" bson:"version"`
}

// ReportJobParams stores request-scoped export options.
type ReportJobParams struct {
	Format    ReportFormat `json:"format" bson:"format"`
	StartDate *string      `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate   *string      `json:"endDate,omitempty" bson:"endDate,omitempty"`
	StudentID *string      `json:"studentId,omitempty" bson:"studentId,omitempty"`
	Status    *string      `json:"status,omitempty" bson:"status,omitempty"`
	HeadID    *string      `json:"headId,omitempty" bson:"headId,omitempty"`
}
