package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/export"
	"github.com/noah-isme/sma-finance-api/pkg/storage"
)

type summarySource interface {
	Summary(ctx context.Context, start, end *string) (*dto.FinancialSummary, error)
}

type obligationSource interface {
	List(ctx context.Context, filter ObligationFilter) ([]dto.ObligationView, error)
}

type cashEntrySource interface {
	ListEntries(ctx context.Context, filter models.CashEntryFilter) ([]dto.CashEntryView, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportSources are the services report datasets are read from.
type ExportSources struct {
	Finance  summarySource
	Ledger   obligationSource
	Income   cashEntrySource
	Expenses cashEntrySource
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds finance datasets and persists rendered files.
type ExportService struct {
	sources   ExportSources
	storage   fileStorage
	renderers map[models.ReportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
	now       Clock
}

// NewExportService constructs an ExportService with csv, pdf and xlsx
// renderers.
func NewExportService(sources ExportSources, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, clock Clock) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		sources: sources,
		storage: files,
		renderers: map[models.ReportFormat]export.Renderer{
			models.ReportFormatCSV:  export.NewCSVExporter(),
			models.ReportFormatPDF:  export.NewPDFExporter(),
			models.ReportFormatXLSX: export.NewXLSXExporter(),
		},
		signer: signer,
		logger: logger,
		cfg:    cfg,
		now:    clock,
	}
}

// ContentType returns the MIME type served for format.
func (s *ExportService) ContentType(format models.ReportFormat) string {
	if renderer, ok := s.renderers[format]; ok {
		return renderer.ContentType()
	}
	return "application/octet-stream"
}

// Generate builds the dataset for job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Debug("report rendered",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("rows", len(dataset.Rows)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when
// ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	period := "all"
	if job.Params.StartDate != nil || job.Params.EndDate != nil {
		period = sanitizeFilename(derefString(job.Params.StartDate)) + "-" + sanitizeFilename(derefString(job.Params.EndDate))
	}
	return fmt.Sprintf("finance/%s_%s_%s_%s.%s", job.Type, period, timestamp, shortID(job.ID), ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "open"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 40 {
		return result[:40]
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	params := job.Params
	switch job.Type {
	case models.ReportTypeSummary:
		return s.summaryDataset(ctx, params)
	case models.ReportTypeObligations:
		return s.obligationDataset(ctx, params)
	case models.ReportTypeIncome:
		return s.cashbookDataset(ctx, s.sources.Income, "Income", params)
	case models.ReportTypeExpenses:
		return s.cashbookDataset(ctx, s.sources.Expenses, "Expenses", params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) summaryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	summary, err := s.sources.Finance.Summary(ctx, params.StartDate, params.EndDate)
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{
		Title:   "Financial Summary " + periodLabel(params),
		Headers: []string{"Section", "Name", "Amount", "Count"},
	}
	data.AddRow("Totals", "Income", formatMoney(summary.TotalIncome), "")
	data.AddRow("Totals", "Fees collected", formatMoney(summary.TotalFees), "")
	data.AddRow("Totals", "Grand total income", formatMoney(summary.GrandTotalIncome), "")
	data.AddRow("Totals", "Expenses", formatMoney(summary.TotalExpenses), "")
	data.AddRow("Totals", "Net profit", formatMoney(summary.NetProfit), "")
	data.AddRow("Totals", "Transactions", "", strconv.Itoa(summary.TransactionCount))
	sections := []struct {
		name string
		rows []dto.CategoryTotal
	}{
		{"Income by head", summary.IncomeByHead},
		{"Expenses by head", summary.ExpenseByHead},
		{"Fees by type", summary.FeesByType},
	}
	for _, section := range sections {
		for _, row := range section.rows {
			data.AddRow(section.name, row.Name, formatMoney(row.Amount), strconv.Itoa(row.Count))
		}
	}
	return data, nil
}

// obligationDataset applies the optional date range to the due date.
func (s *ExportService) obligationDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	views, err := s.sources.Ledger.List(ctx, ObligationFilter{
		StudentID: derefString(params.StudentID),
		Status:    derefString(params.Status),
	})
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{
		Title: "Student Fees " + periodLabel(params),
		Headers: []string{
			"Student", "Admission No", "Fee Group", "Fee Type", "Due Date",
			"Total Due", "Paid", "Balance", "Status", "Payment Date",
		},
	}
	totalDue, paid, balance := decimal.Zero, decimal.Zero, decimal.Zero
	for _, view := range views {
		if !isInRange(view.DueDate, params.StartDate, params.EndDate) {
			continue
		}
		data.AddRow(
			view.StudentName, view.AdmissionNo, view.FeeGroupName, view.FeeTypeName, view.DueDate,
			formatMoney(view.TotalDue), formatMoney(view.AmountPaid), formatMoney(view.Balance),
			string(view.Status), derefString(view.PaymentDate),
		)
		totalDue = totalDue.Add(amount(view.TotalDue))
		paid = paid.Add(amount(view.AmountPaid))
		balance = balance.Add(amount(view.Balance))
	}
	data.Totals = []string{"Total", "", "", "", "", totalDue.StringFixed(2), paid.StringFixed(2), balance.StringFixed(2), "", ""}
	return data, nil
}

func (s *ExportService) cashbookDataset(ctx context.Context, source cashEntrySource, label string, params models.ReportJobParams) (export.Dataset, error) {
	entries, err := source.ListEntries(ctx, models.CashEntryFilter{
		HeadID:    derefString(params.HeadID),
		StartDate: derefString(params.StartDate),
		EndDate:   derefString(params.EndDate),
	})
	if err != nil {
		return export.Dataset{}, err
	}
	data := export.Dataset{
		Title:   label + " " + periodLabel(params),
		Headers: []string{"Date", "Head", "Name", "Invoice", "Amount"},
	}
	total := decimal.Zero
	for _, entry := range entries {
		data.AddRow(entry.Date, entry.HeadName, entry.Name, derefString(entry.InvoiceNumber), formatMoney(entry.Amount))
		total = total.Add(amount(entry.Amount))
	}
	data.Totals = []string{"Total", "", "", "", total.StringFixed(2)}
	return data, nil
}

func periodLabel(params models.ReportJobParams) string {
	start, end := derefString(params.StartDate), derefString(params.EndDate)
	switch {
	case start == "" && end == "":
		return "(all dates)"
	case start == "":
		return "(until " + end + ")"
	case end == "":
		return "(from " + start + ")"
	default:
		return "(" + start + " to " + end + ")"
	}
}

func formatMoney(v float64) string {
	return amount(v).StringFixed(2)
}
