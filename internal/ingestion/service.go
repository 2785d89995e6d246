package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/extract"
	"github.com/rpattn/masterdata/internal/normalize"
	"github.com/rpattn/masterdata/internal/repository"
	"github.com/rpattn/masterdata/internal/upsert"
)

var (
	// ErrInvalidRequest is returned when an ingestion request is incomplete.
	ErrInvalidRequest = errors.New("invalid ingestion request")
	// ErrUnreadableUpload is returned when the uploaded file cannot be parsed.
	ErrUnreadableUpload = errors.New("unreadable upload")
)

// BatchWriter persists a normalized batch.
type BatchWriter interface {
	Upsert(ctx context.Context, batch domain.IngestionBatch) (upsert.Result, error)
}

// Options configures spreadsheet extraction.
type Options struct {
	Sheet    string
	StartRow int
	// Range is the default data region, e.g. "A8:GS38". It wins over StartRow.
	Range string
}

// Service loads uploaded spreadsheets into mapped destination tables.
type Service struct {
	mappings repository.MappingRepository
	logRepo  repository.IngestionLogRepository
	sink     BatchWriter
	opts     Options
}

// NewService creates a new ingestion service.
func NewService(
	mappings repository.MappingRepository,
	logRepo repository.IngestionLogRepository,
	sink BatchWriter,
	opts Options,
) *Service {
	if opts.StartRow < 0 {
		opts.StartRow = extract.DefaultStartRow
	}
	return &Service{
		mappings: mappings,
		logRepo:  logRepo,
		sink:     sink,
		opts:     opts,
	}
}

// Upload is a file written to disk for the duration of one request.
type Upload struct {
	Path     string
	FileName string
}

// Bound limits the records read from an upload.
type Bound struct {
	// Year and Month bound a sheet to the days of that month.
	Year  int
	Month int
	// Rows bounds a sheet to a fixed record count and wins over Year/Month.
	Rows int
	// StartLine and EndLine select an inclusive 1-based line range of a CSV.
	StartLine int
	EndLine   int
	// Range overrides the configured sheet data region for one upload.
	Range string
}

// Limit returns the record cap implied by the bound. Zero means no cap.
func (b Bound) Limit() (int, error) {
	switch {
	case b.Rows < 0:
		return 0, fmt.Errorf("%w: rows must not be negative", ErrInvalidRequest)
	case b.Rows > 0:
		return b.Rows, nil
	case b.Year != 0 || b.Month != 0:
		days, err := extract.DaysInMonth(b.Year, b.Month)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return days, nil
	default:
		return 0, nil
	}
}

// Request describes the ingestion input.
type Request struct {
	Actor  string
	Table  string
	Upload Upload
	Bound  Bound
}

// Summary returns ingestion level metrics.
type Summary struct {
	Table          string           `json:"table"`
	FileName       string           `json:"fileName"`
	ExtractedRows  int              `json:"extractedRows"`
	AffectedRows   int64            `json:"affectedRows"`
	Mode           domain.WriteMode `json:"mode,omitempty"`
	AmbiguousCells int              `json:"ambiguousCells"`
}

type format int

const (
	formatSheet format = iota + 1
	formatCSV
)

func detectFormat(name string) (format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return formatSheet, nil
	case ".csv", ".txt":
		return formatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, name)
	}
}

// Ingest extracts, normalizes and writes one upload. The upload file is
// removed before Ingest returns, whatever the outcome.
func (s *Service) Ingest(ctx context.Context, req Request) (summary Summary, err error) {
	defer s.removeUpload(req.Upload)

	summary = Summary{Table: req.Table, FileName: req.Upload.FileName}
	defer func() {
		if err != nil {
			log.Printf("[INGEST] table=%s actor=%s file=%s rows=%d failed: %v",
				req.Table, req.Actor, req.Upload.FileName, summary.ExtractedRows, err)
			s.logIngestionError(ctx, req, nil, err)
		}
	}()

	if strings.TrimSpace(req.Table) == "" {
		return summary, fmt.Errorf("%w: table name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Upload.Path) == "" {
		return summary, fmt.Errorf("%w: upload is required", ErrInvalidRequest)
	}
	name := req.Upload.FileName
	if name == "" {
		name = req.Upload.Path
	}
	kind, err := detectFormat(name)
	if err != nil {
		return summary, err
	}
	limit, err := req.Bound.Limit()
	if err != nil {
		return summary, err
	}

	mapping, err := s.mappings.GetMapping(ctx, req.Table)
	if err != nil {
		return summary, err
	}
	plan := normalize.NewPlan(mapping)

	raw, err := s.extract(kind, req, mapping, plan, limit)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", ErrUnreadableUpload, err)
	}
	summary.ExtractedRows = len(raw)
	if len(raw) == 0 {
		return summary, domain.ErrEmptyBatch
	}

	rows, issues := plan.Rows(raw)
	summary.AmbiguousCells = len(issues)
	for _, issue := range issues {
		s.summaryRowError(ctx, req, issue.Row, fmt.Errorf("column %s (%s): %w", issue.Column, issue.HeaderRef, issue.Err))
	}

	result, err := s.sink.Upsert(ctx, domain.IngestionBatch{
		Table:   req.Table,
		Actor:   req.Actor,
		Columns: plan.Columns(),
		Rows:    rows,
	})
	if err != nil {
		return summary, err
	}
	summary.AffectedRows = result.Affected
	summary.Mode = result.Mode

	log.Printf("[INGEST] table=%s actor=%s file=%s rows=%d affected=%d mode=%s ambiguous=%d",
		req.Table, req.Actor, req.Upload.FileName, summary.ExtractedRows, summary.AffectedRows, summary.Mode, summary.AmbiguousCells)
	return summary, nil
}

func (s *Service) extract(kind format, req Request, mapping domain.ColumnMapping, plan *normalize.Plan, limit int) ([]domain.RawRow, error) {
	switch kind {
	case formatCSV:
		return extract.ReadCSVFile(req.Upload.Path, extract.CSVOptions{
			Start:   req.Bound.StartLine,
			End:     req.Bound.EndLine,
			Limit:   limit,
			Headers: mapping.HeaderRefs(),
		})
	default:
		region := strings.TrimSpace(req.Bound.Range)
		if region == "" {
			region = s.opts.Range
		}
		return extract.ReadSheet(req.Upload.Path, extract.SheetOptions{
			Sheet:       s.opts.Sheet,
			StartRow:    s.opts.StartRow,
			Range:       region,
			Limit:       limit,
			Headers:     mapping.HeaderRefs(),
			DateHeaders: plan.DateHeaders(),
		})
	}
}

func (s *Service) removeUpload(upload Upload) {
	if upload.Path == "" {
		return
	}
	if err := os.Remove(upload.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[INGEST] failed to remove upload %s: %v", upload.Path, err)
	}
}

func (s *Service) summaryRowError(ctx context.Context, req Request, rowNumber int, err error) {
	s.logIngestionError(ctx, req, &rowNumber, err)
}

func (s *Service) logIngestionError(ctx context.Context, req Request, rowNumber *int, err error) {
	if s.logRepo == nil || err == nil {
		return
	}
	entry := domain.IngestionLogEntry{
		TableName:    req.Table,
		Actor:        req.Actor,
		FileName:     req.Upload.FileName,
		ErrorMessage: err.Error(),
	}
	if rowNumber != nil {
		entry.RowNumber = rowNumber
	}
	if recordErr := s.logRepo.Record(ctx, entry); recordErr != nil {
		log.Printf("[INGEST] failed to record ingestion log: %v", recordErr)
	}
}
