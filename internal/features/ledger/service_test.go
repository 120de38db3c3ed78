package ledger

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

type fakeLedgerRepo struct {
	entries []Entry
}

func (r *fakeLedgerRepo) InsertMany(ctx context.Context, entries []Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeLedgerRepo) DeleteByShopPeriod(ctx context.Context, shopID, periodDate string) (int64, error) {
	var kept []Entry
	var removed int64
	for _, e := range r.entries {
		if e.ShopID == shopID && e.PeriodDate == periodDate {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

func (r *fakeLedgerRepo) CountByShopPeriod(ctx context.Context, shopID, periodDate string) (int64, error) {
	var n int64
	for _, e := range r.entries {
		if e.ShopID == shopID && e.PeriodDate == periodDate {
			n++
		}
	}
	return n, nil
}

func (r *fakeLedgerRepo) FindByShopPeriod(ctx context.Context, shopID, periodDate string) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.ShopID == shopID && e.PeriodDate == periodDate {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestReplaceForPeriod(t *testing.T) {
	repo := &fakeLedgerRepo{entries: []Entry{
		{ShopID: "s1", PeriodDate: "2026-07", AccountNumber: "1001"},
		{ShopID: "s1", PeriodDate: "2026-08", AccountNumber: "1002"},
		{ShopID: "s2", PeriodDate: "2026-08", AccountNumber: "1003"},
	}}
	svc := NewLedgerService(repo)

	removed, err := svc.ReplaceForPeriod(context.Background(), "s1", "2026-08")
	if err != nil {
		t.Fatalf("ReplaceForPeriod: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	// other shops and periods are untouched
	if len(repo.entries) != 2 {
		t.Errorf("remaining entries = %d, want 2", len(repo.entries))
	}
}

func TestExists(t *testing.T) {
	repo := &fakeLedgerRepo{entries: []Entry{
		{ShopID: "s1", PeriodDate: "2026-08"},
		{ShopID: "s1", PeriodDate: "2026-08"},
	}}
	svc := NewLedgerService(repo)

	exists, count, err := svc.Exists(context.Background(), "s1", "2026-08")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists || count != 2 {
		t.Errorf("Exists = %v/%d, want true/2", exists, count)
	}

	exists, count, err = svc.Exists(context.Background(), "s1", "2026-09")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists || count != 0 {
		t.Errorf("Exists = %v/%d, want false/0", exists, count)
	}
}

func TestExport(t *testing.T) {
	repo := &fakeLedgerRepo{entries: []Entry{
		{ShopID: "s1", PeriodDate: "2026-08", EntryDate: "2026-08-01", AccountNumber: "1001", Description: "rent", DebitAmount: 1200.5},
	}}
	svc := NewLedgerService(repo)

	b, err := svc.Export(context.Background(), "s1", "2026-08")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one entry", len(rows))
	}
	if rows[1][1] != "1001" {
		t.Errorf("account cell = %q, want 1001", rows[1][1])
	}
}
