package importjob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-ledger/internal/config"
	"go-ledger/internal/features/ledger"

	"go.uber.org/zap"
	validator "gopkg.in/go-playground/validator.v9"
)

// Target field names for the general ledger format.
const (
	FieldEntryDate     = "entry_date"
	FieldAccountNumber = "account_number"
	FieldDescription   = "description"
	FieldDebitAmount   = "debit_amount"
	FieldCreditAmount  = "credit_amount"
)

type ImportJobService interface {
	CreateJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, jobNumber int) (*ImportJob, error)
	ListErrors(ctx context.Context, jobNumber int) ([]ImportError, error)
	ListRecentJobs(ctx context.Context) ([]ImportJob, error)
	FailJob(ctx context.Context, jobNumber int, message string) error

	// ProcessLedgerRows runs the committed import to completion. Rows are the
	// full staged sheet in source-column form; mappings come from the job.
	ProcessLedgerRows(ctx context.Context, jobNumber int, rows []map[string]string) error
}

type ImportJobServiceImpl struct {
	JobRepo       ImportJobRepository
	LedgerService ledger.LedgerService
	Config        *config.Config
	Logger        *zap.Logger

	validate *validator.Validate
}

func NewImportJobService(jobRepo ImportJobRepository, ledgerService ledger.LedgerService, cfg *config.Config, log *zap.Logger) ImportJobService {
	return &ImportJobServiceImpl{
		JobRepo:       jobRepo,
		LedgerService: ledgerService,
		Config:        cfg,
		Logger:        log,
		validate:      validator.New(),
	}
}

func (s *ImportJobServiceImpl) CreateJob(ctx context.Context, job *ImportJob) error {
	return s.JobRepo.Create(ctx, job)
}

func (s *ImportJobServiceImpl) GetJob(ctx context.Context, jobNumber int) (*ImportJob, error) {
	return s.JobRepo.Get(ctx, jobNumber)
}

func (s *ImportJobServiceImpl) ListErrors(ctx context.Context, jobNumber int) ([]ImportError, error) {
	return s.JobRepo.FindErrors(ctx, jobNumber)
}

func (s *ImportJobServiceImpl) ListRecentJobs(ctx context.Context) ([]ImportJob, error) {
	return s.JobRepo.ListRecent(ctx, 50)
}

// FailJob marks a job as errored before any rows were processed, e.g. when
// the staged file can no longer be read.
func (s *ImportJobServiceImpl) FailJob(ctx context.Context, jobNumber int, message string) error {
	job, err := s.JobRepo.Get(ctx, jobNumber)
	if err != nil {
		return err
	}
	job.Status = ImportStatusError
	job.ErrorMessage = message
	now := time.Now()
	job.CompletedAt = &now
	return s.JobRepo.Update(ctx, job)
}

// ledgerRow is the mapped row shape prior to type conversion. Validation
// failures become per-row import errors, not a job failure.
type ledgerRow struct {
	EntryDate     string `validate:"required"`
	AccountNumber string `validate:"required"`
	Description   string
	DebitAmount   string
	CreditAmount  string
}

func (s *ImportJobServiceImpl) ProcessLedgerRows(ctx context.Context, jobNumber int, rows []map[string]string) error {
	job, err := s.JobRepo.Get(ctx, jobNumber)
	if err != nil {
		return err
	}

	if err := s.JobRepo.UpdateStatus(ctx, jobNumber, ImportStatusProcessing); err != nil {
		return err
	}

	// Committing replaces whatever was previously imported for this period.
	if removed, err := s.LedgerService.ReplaceForPeriod(ctx, job.ShopID, job.PeriodDate); err != nil {
		s.markError(ctx, job, fmt.Sprintf("failed to clear prior entries: %v", err))
		return err
	} else if removed > 0 {
		s.Logger.Info("Replaced prior ledger entries",
			zap.Int("job_number", jobNumber),
			zap.Int64("removed", removed))
	}

	var successCount, failedCount int
	var importErrs []ImportError
	var batch []ledger.Entry

	total := len(rows)
	for i, row := range rows {
		// Header occupies sheet row 1; data starts at 2.
		rowNumber := i + 2

		entry, rowErrs := s.buildEntry(job, row, rowNumber)
		if len(rowErrs) > 0 {
			failedCount++
			importErrs = append(importErrs, rowErrs...)
		} else {
			successCount++
			batch = append(batch, *entry)
		}

		if len(batch) >= 100 {
			if err := s.LedgerService.InsertEntries(ctx, batch); err != nil {
				s.markError(ctx, job, fmt.Sprintf("failed to insert entries: %v", err))
				return err
			}
			batch = batch[:0]
		}

		if (i+1)%s.Config.ProgressEvery == 0 {
			pct := percentage(i+1, total)
			s.JobRepo.UpdateProgress(ctx, jobNumber, i+1, successCount, failedCount, pct)
		}
	}

	if len(batch) > 0 {
		if err := s.LedgerService.InsertEntries(ctx, batch); err != nil {
			s.markError(ctx, job, fmt.Sprintf("failed to insert entries: %v", err))
			return err
		}
	}

	if err := s.JobRepo.InsertErrors(ctx, importErrs); err != nil {
		s.Logger.Warn("Failed to persist import errors", zap.Int("job_number", jobNumber), zap.Error(err))
	}

	job.ProcessedRecords = total
	job.TotalRecords = total
	job.SuccessfulRecords = successCount
	job.FailedRecords = failedCount
	job.PercentageComplete = 100
	now := time.Now()
	job.CompletedAt = &now

	// A job with at least one accepted row completes, even with failures.
	// Rejecting every row is a total failure.
	if successCount == 0 && total > 0 {
		job.Status = ImportStatusFailed
		job.ErrorMessage = fmt.Sprintf("all %d rows were rejected", total)
	} else {
		job.Status = ImportStatusCompleted
	}

	s.Logger.Info("Import finished",
		zap.Int("job_number", jobNumber),
		zap.String("status", string(job.Status)),
		zap.Int("successful", successCount),
		zap.Int("failed", failedCount))

	return s.JobRepo.Update(ctx, job)
}

// buildEntry maps one staged row through the job's column mappings into a
// ledger entry. Returned errors are row-scoped.
func (s *ImportJobServiceImpl) buildEntry(job *ImportJob, row map[string]string, rowNumber int) (*ledger.Entry, []ImportError) {
	mapped := make(map[string]string, len(job.Mappings))
	var errs []ImportError

	for _, m := range job.Mappings {
		value := strings.TrimSpace(row[m.SourceColumn])
		if m.Transform != "" {
			out, err := applyTransform(m.Transform, value, row)
			if err != nil {
				errs = append(errs, ImportError{
					JobNumber:    job.JobNumber,
					RowNumber:    rowNumber,
					ColumnName:   m.SourceColumn,
					ErrorMessage: err.Error(),
				})
				continue
			}
			value = out
		}
		mapped[m.TargetField] = value
	}
	if len(errs) > 0 {
		return nil, errs
	}

	lr := ledgerRow{
		EntryDate:     mapped[FieldEntryDate],
		AccountNumber: mapped[FieldAccountNumber],
		Description:   mapped[FieldDescription],
		DebitAmount:   mapped[FieldDebitAmount],
		CreditAmount:  mapped[FieldCreditAmount],
	}

	if err := s.validate.Struct(lr); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, ImportError{
					JobNumber:    job.JobNumber,
					RowNumber:    rowNumber,
					ColumnName:   sourceColumnFor(job.Mappings, fieldToTarget(fe.Field())),
					ErrorMessage: fmt.Sprintf("%s is required", fieldToTarget(fe.Field())),
				})
			}
			return nil, errs
		}
		return nil, []ImportError{{JobNumber: job.JobNumber, RowNumber: rowNumber, ErrorMessage: err.Error()}}
	}

	entryDate, err := parseDate(lr.EntryDate)
	if err != nil {
		return nil, []ImportError{{
			JobNumber:    job.JobNumber,
			RowNumber:    rowNumber,
			ColumnName:   sourceColumnFor(job.Mappings, FieldEntryDate),
			ErrorMessage: fmt.Sprintf("invalid date %q", lr.EntryDate),
		}}
	}

	debit, err := parseAmount(lr.DebitAmount)
	if err != nil {
		return nil, []ImportError{{
			JobNumber:    job.JobNumber,
			RowNumber:    rowNumber,
			ColumnName:   sourceColumnFor(job.Mappings, FieldDebitAmount),
			ErrorMessage: fmt.Sprintf("invalid amount %q", lr.DebitAmount),
		}}
	}
	credit, err := parseAmount(lr.CreditAmount)
	if err != nil {
		return nil, []ImportError{{
			JobNumber:    job.JobNumber,
			RowNumber:    rowNumber,
			ColumnName:   sourceColumnFor(job.Mappings, FieldCreditAmount),
			ErrorMessage: fmt.Sprintf("invalid amount %q", lr.CreditAmount),
		}}
	}

	return &ledger.Entry{
		ProgramID:     job.ProgramID,
		ShopID:        job.ShopID,
		PeriodDate:    job.PeriodDate,
		EntryDate:     entryDate,
		AccountNumber: lr.AccountNumber,
		Description:   lr.Description,
		DebitAmount:   debit,
		CreditAmount:  credit,
		JobNumber:     job.JobNumber,
	}, nil
}

func (s *ImportJobServiceImpl) markError(ctx context.Context, job *ImportJob, message string) {
	job.Status = ImportStatusError
	job.ErrorMessage = message
	now := time.Now()
	job.CompletedAt = &now
	if err := s.JobRepo.Update(ctx, job); err != nil {
		s.Logger.Error("Failed to mark job errored", zap.Int("job_number", job.JobNumber), zap.Error(err))
	}
}

func percentage(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006"}

func parseDate(value string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format")
}

func parseAmount(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	cleaned := strings.ReplaceAll(value, ",", "")
	return strconv.ParseFloat(cleaned, 64)
}

// fieldToTarget maps the validator's struct field names back to target fields.
func fieldToTarget(field string) string {
	switch field {
	case "EntryDate":
		return FieldEntryDate
	case "AccountNumber":
		return FieldAccountNumber
	case "Description":
		return FieldDescription
	case "DebitAmount":
		return FieldDebitAmount
	case "CreditAmount":
		return FieldCreditAmount
	}
	return field
}

func sourceColumnFor(mappings []ColumnMapping, targetField string) string {
	for _, m := range mappings {
		if m.TargetField == targetField {
			return m.SourceColumn
		}
	}
	return ""
}
