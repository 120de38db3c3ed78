package ledger

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

type LedgerService interface {
	InsertEntries(ctx context.Context, entries []Entry) error
	ReplaceForPeriod(ctx context.Context, shopID, periodDate string) (int64, error)
	Exists(ctx context.Context, shopID, periodDate string) (bool, int64, error)
	Export(ctx context.Context, shopID, periodDate string) ([]byte, error)
}

type LedgerServiceImpl struct {
	LedgerRepo LedgerRepository
}

func NewLedgerService(ledgerRepo LedgerRepository) LedgerService {
	return &LedgerServiceImpl{
		LedgerRepo: ledgerRepo,
	}
}

func (s *LedgerServiceImpl) InsertEntries(ctx context.Context, entries []Entry) error {
	return s.LedgerRepo.InsertMany(ctx, entries)
}

// ReplaceForPeriod removes any prior entries for the shop+period. The import
// worker calls this before inserting committed rows, so a re-import replaces
// rather than appends.
func (s *LedgerServiceImpl) ReplaceForPeriod(ctx context.Context, shopID, periodDate string) (int64, error) {
	return s.LedgerRepo.DeleteByShopPeriod(ctx, shopID, periodDate)
}

func (s *LedgerServiceImpl) Exists(ctx context.Context, shopID, periodDate string) (bool, int64, error) {
	count, err := s.LedgerRepo.CountByShopPeriod(ctx, shopID, periodDate)
	if err != nil {
		return false, 0, err
	}
	return count > 0, count, nil
}

// Export writes the shop+period entries to an XLSX workbook.
func (s *LedgerServiceImpl) Export(ctx context.Context, shopID, periodDate string) ([]byte, error) {
	entries, err := s.LedgerRepo.FindByShopPeriod(ctx, shopID, periodDate)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"Entry Date", "Account Number", "Description", "Debit", "Credit"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, e := range entries {
		row := i + 2
		f.SetCellValue(sheet, "A"+strconv.Itoa(row), e.EntryDate)
		f.SetCellValue(sheet, "B"+strconv.Itoa(row), e.AccountNumber)
		f.SetCellValue(sheet, "C"+strconv.Itoa(row), e.Description)
		f.SetCellValue(sheet, "D"+strconv.Itoa(row), e.DebitAmount)
		f.SetCellValue(sheet, "E"+strconv.Itoa(row), e.CreditAmount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write export workbook: %w", err)
	}
	return buf.Bytes(), nil
}
