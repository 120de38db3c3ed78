package account

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go-ledger/internal/config"
	"go-ledger/internal/features/importjob"
	"go-ledger/internal/features/staging"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type AccountService interface {
	ListMasters(ctx context.Context) ([]MasterAccount, error)
	ListShopAccounts(ctx context.Context, programID, shopID string) ([]ShopAccount, error)
	MapShopAccount(ctx context.Context, id, masterAccountNumber string) error
	MatchingStats(ctx context.Context, programID, shopID string) (*MatchingStats, error)

	// UploadMaster submits a master chart-of-accounts file and returns the
	// job handle immediately; processing runs asynchronously.
	UploadMaster(ctx context.Context, filePath, fileName, userID string) (*importjob.ImportJob, error)

	// Template produces a blank XLSX workbook matching the master format.
	Template() ([]byte, error)
}

type AccountServiceImpl struct {
	AccountRepo AccountRepository
	JobRepo     importjob.ImportJobRepository
	Config      *config.Config
	Logger      *zap.Logger
}

func NewAccountService(accountRepo AccountRepository, jobRepo importjob.ImportJobRepository, cfg *config.Config, log *zap.Logger) AccountService {
	return &AccountServiceImpl{
		AccountRepo: accountRepo,
		JobRepo:     jobRepo,
		Config:      cfg,
		Logger:      log,
	}
}

func (s *AccountServiceImpl) ListMasters(ctx context.Context) ([]MasterAccount, error) {
	return s.AccountRepo.ListMasters(ctx)
}

func (s *AccountServiceImpl) ListShopAccounts(ctx context.Context, programID, shopID string) ([]ShopAccount, error) {
	return s.AccountRepo.ListShopAccounts(ctx, programID, shopID)
}

func (s *AccountServiceImpl) MapShopAccount(ctx context.Context, id, masterAccountNumber string) error {
	if masterAccountNumber != "" {
		if _, err := s.AccountRepo.FindMaster(ctx, masterAccountNumber); err != nil {
			return fmt.Errorf("master account %s not found", masterAccountNumber)
		}
	}
	return s.AccountRepo.SetMasterLink(ctx, id, masterAccountNumber)
}

func (s *AccountServiceImpl) MatchingStats(ctx context.Context, programID, shopID string) (*MatchingStats, error) {
	total, matched, err := s.AccountRepo.CountShopAccounts(ctx, programID, shopID)
	if err != nil {
		return nil, err
	}

	stats := &MatchingStats{
		TotalShopAccounts: int(total),
		MatchedAccounts:   int(matched),
		UnmatchedAccounts: int(total - matched),
	}
	if total > 0 {
		stats.MatchRate = float64(matched) / float64(total) * 100
	}
	return stats, nil
}

func (s *AccountServiceImpl) UploadMaster(ctx context.Context, filePath, fileName, userID string) (*importjob.ImportJob, error) {
	job := &importjob.ImportJob{
		UserID:     userID,
		FormatType: importjob.FormatMasterAccount,
		ProgramID:  "master",
		FileName:   fileName,
	}
	if err := s.JobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	go s.processMasterFile(job, filePath, fileName)

	return job, nil
}

func (s *AccountServiceImpl) processMasterFile(job *importjob.ImportJob, filePath, fileName string) {
	ctx := context.Background()

	s.JobRepo.UpdateStatus(ctx, job.JobNumber, importjob.ImportStatusProcessing)

	rows, err := parseMasterFile(filePath, fileName)
	if err != nil {
		job.Status = importjob.ImportStatusError
		job.ErrorMessage = err.Error()
		now := time.Now()
		job.CompletedAt = &now
		s.JobRepo.Update(ctx, job)
		return
	}

	var successCount, failedCount int
	var importErrs []importjob.ImportError

	total := len(rows)
	for i, row := range rows {
		rowNumber := i + 2

		row.AccountNumber = strings.TrimSpace(row.AccountNumber)
		row.AccountName = strings.TrimSpace(row.AccountName)

		if row.AccountNumber == "" || row.AccountName == "" {
			failedCount++
			importErrs = append(importErrs, importjob.ImportError{
				JobNumber:    job.JobNumber,
				RowNumber:    rowNumber,
				ErrorMessage: "account_number and account_name are required",
			})
			continue
		}

		if err := s.AccountRepo.UpsertMaster(ctx, &row); err != nil {
			failedCount++
			importErrs = append(importErrs, importjob.ImportError{
				JobNumber:    job.JobNumber,
				RowNumber:    rowNumber,
				ErrorMessage: err.Error(),
			})
			continue
		}
		successCount++

		if (i+1)%s.Config.ProgressEvery == 0 {
			pct := float64(i+1) / float64(total) * 100
			s.JobRepo.UpdateProgress(ctx, job.JobNumber, i+1, successCount, failedCount, pct)
		}
	}

	if err := s.JobRepo.InsertErrors(ctx, importErrs); err != nil {
		s.Logger.Warn("Failed to persist import errors", zap.Int("job_number", job.JobNumber), zap.Error(err))
	}

	// New masters may resolve previously unmatched shop accounts.
	if linked, err := s.rematchShopAccounts(ctx); err != nil {
		s.Logger.Warn("Shop account rematch failed", zap.Error(err))
	} else if linked > 0 {
		s.Logger.Info("Linked shop accounts to new masters", zap.Int("linked", linked))
	}

	job.TotalRecords = total
	job.ProcessedRecords = total
	job.SuccessfulRecords = successCount
	job.FailedRecords = failedCount
	job.PercentageComplete = 100
	now := time.Now()
	job.CompletedAt = &now
	if successCount == 0 && total > 0 {
		job.Status = importjob.ImportStatusFailed
		job.ErrorMessage = fmt.Sprintf("all %d rows were rejected", total)
	} else {
		job.Status = importjob.ImportStatusCompleted
	}

	if err := s.JobRepo.Update(ctx, job); err != nil {
		s.Logger.Error("Failed to finalize master import", zap.Int("job_number", job.JobNumber), zap.Error(err))
	}
}

// rematchShopAccounts links unmatched shop accounts whose number now exists
// in the master chart.
func (s *AccountServiceImpl) rematchShopAccounts(ctx context.Context) (int, error) {
	unmatched, err := s.AccountRepo.ListUnmatched(ctx)
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, acc := range unmatched {
		if _, err := s.AccountRepo.FindMaster(ctx, acc.AccountNumber); err != nil {
			continue
		}
		if err := s.AccountRepo.SetMasterLink(ctx, acc.ID.Hex(), acc.AccountNumber); err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

func (s *AccountServiceImpl) Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"account_number", "account_name", "category"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	f.SetCellValue(sheet, "A2", "1000")
	f.SetCellValue(sheet, "B2", "Cash")
	f.SetCellValue(sheet, "C2", "assets")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write template workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// parseMasterFile reads the fixed-schema master chart file. CSV decodes by
// header via csvutil after charset conversion; XLSX reads by position.
func parseMasterFile(filePath, fileName string) ([]MasterAccount, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master file: %w", err)
		}
		decoded, err := staging.ToUTF8(raw)
		if err != nil {
			return nil, err
		}
		var rows []MasterAccount
		if err := csvutil.Unmarshal(decoded, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode master CSV: %w", err)
		}
		return rows, nil

	case strings.HasSuffix(lower, ".xlsx"):
		file, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master file: %w", err)
		}
		defer file.Close()
		return parseMasterExcel(file)

	case strings.HasSuffix(lower, ".xls"):
		return nil, fmt.Errorf("legacy .xls files are not supported; save %s as .xlsx or .csv", fileName)

	default:
		return nil, fmt.Errorf("unsupported file format: %s", fileName)
	}
}

func parseMasterExcel(r io.Reader) ([]MasterAccount, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("Excel file is empty")
	}

	col := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	var accounts []MasterAccount
	for i := 1; i < len(rows); i++ {
		accounts = append(accounts, MasterAccount{
			AccountNumber: col(rows[i], 0),
			AccountName:   col(rows[i], 1),
			Category:      col(rows[i], 2),
		})
	}
	return accounts, nil
}
