package account

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-ledger/internal/config"
	"go-ledger/internal/features/importjob"
)

type fakeAccountRepo struct {
	masters map[string]*MasterAccount
	shops   map[string]*ShopAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		masters: make(map[string]*MasterAccount),
		shops:   make(map[string]*ShopAccount),
	}
}

func (r *fakeAccountRepo) UpsertMaster(ctx context.Context, acc *MasterAccount) error {
	r.masters[acc.AccountNumber] = acc
	return nil
}

func (r *fakeAccountRepo) ListMasters(ctx context.Context) ([]MasterAccount, error) {
	var out []MasterAccount
	for _, m := range r.masters {
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeAccountRepo) FindMaster(ctx context.Context, accountNumber string) (*MasterAccount, error) {
	m, ok := r.masters[accountNumber]
	if !ok {
		return nil, errors.New("master not found")
	}
	return m, nil
}

func (r *fakeAccountRepo) UpsertShopAccount(ctx context.Context, acc *ShopAccount) error {
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	r.shops[acc.ID.Hex()] = acc
	return nil
}

func (r *fakeAccountRepo) ListShopAccounts(ctx context.Context, programID, shopID string) ([]ShopAccount, error) {
	var out []ShopAccount
	for _, s := range r.shops {
		if s.ProgramID == programID && s.ShopID == shopID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) SetMasterLink(ctx context.Context, id string, masterAccountNumber string) error {
	s, ok := r.shops[id]
	if !ok {
		return errors.New("shop account not found")
	}
	s.MasterAccountNumber = masterAccountNumber
	return nil
}

func (r *fakeAccountRepo) ListUnmatched(ctx context.Context) ([]ShopAccount, error) {
	var out []ShopAccount
	for _, s := range r.shops {
		if s.MasterAccountNumber == "" {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) CountShopAccounts(ctx context.Context, programID, shopID string) (int64, int64, error) {
	var total, matched int64
	for _, s := range r.shops {
		if s.ProgramID != programID || s.ShopID != shopID {
			continue
		}
		total++
		if s.MasterAccountNumber != "" {
			matched++
		}
	}
	return total, matched, nil
}

type masterJobRepo struct {
	jobs       map[int]*importjob.ImportJob
	importErrs []importjob.ImportError
	finalized  chan struct{}
}

func newMasterJobRepo() *masterJobRepo {
	return &masterJobRepo{jobs: make(map[int]*importjob.ImportJob), finalized: make(chan struct{}, 1)}
}

func (r *masterJobRepo) Create(ctx context.Context, job *importjob.ImportJob) error {
	job.JobNumber = len(r.jobs) + 1
	job.Status = importjob.ImportStatusQueued
	r.jobs[job.JobNumber] = job
	return nil
}

func (r *masterJobRepo) Get(ctx context.Context, jobNumber int) (*importjob.ImportJob, error) {
	j, ok := r.jobs[jobNumber]
	if !ok {
		return nil, errors.New("job not found")
	}
	return j, nil
}

func (r *masterJobRepo) Update(ctx context.Context, job *importjob.ImportJob) error {
	r.jobs[job.JobNumber] = job
	if job.Status.Terminal() {
		select {
		case r.finalized <- struct{}{}:
		default:
		}
	}
	return nil
}

func (r *masterJobRepo) UpdateStatus(ctx context.Context, jobNumber int, status importjob.ImportStatus) error {
	r.jobs[jobNumber].Status = status
	return nil
}

func (r *masterJobRepo) UpdateProgress(ctx context.Context, jobNumber int, processed, successful, failed int, percentage float64) error {
	return nil
}

func (r *masterJobRepo) ListRecent(ctx context.Context, limit int64) ([]importjob.ImportJob, error) {
	return nil, nil
}

func (r *masterJobRepo) InsertErrors(ctx context.Context, errs []importjob.ImportError) error {
	r.importErrs = append(r.importErrs, errs...)
	return nil
}

func (r *masterJobRepo) FindErrors(ctx context.Context, jobNumber int) ([]importjob.ImportError, error) {
	return r.importErrs, nil
}

func accountConfig() *config.Config {
	return &config.Config{ProgressEvery: 10}
}

func waitFinalized(t *testing.T, repo *masterJobRepo) {
	t.Helper()
	select {
	case <-repo.finalized:
	case <-time.After(2 * time.Second):
		t.Fatal("master import never finalized")
	}
}

func TestMatchingStats(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, newMasterJobRepo(), accountConfig(), zap.NewNop())

	ctx := context.Background()
	for i, linked := range []bool{true, true, false} {
		acc := &ShopAccount{ProgramID: "p1", ShopID: "s1", AccountNumber: string(rune('a' + i))}
		if linked {
			acc.MasterAccountNumber = "1000"
		}
		repo.UpsertShopAccount(ctx, acc)
	}

	stats, err := svc.MatchingStats(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("MatchingStats: %v", err)
	}
	if stats.TotalShopAccounts != 3 || stats.MatchedAccounts != 2 || stats.UnmatchedAccounts != 1 {
		t.Errorf("stats = %+v, want 3/2/1", stats)
	}
	if stats.MatchRate < 66 || stats.MatchRate > 67 {
		t.Errorf("match rate = %v, want ~66.7", stats.MatchRate)
	}
}

func TestMatchingStatsEmptyShop(t *testing.T) {
	svc := NewAccountService(newFakeAccountRepo(), newMasterJobRepo(), accountConfig(), zap.NewNop())
	stats, err := svc.MatchingStats(context.Background(), "p1", "s1")
	if err != nil {
		t.Fatalf("MatchingStats: %v", err)
	}
	if stats.TotalShopAccounts != 0 || stats.MatchRate != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}

func TestMapShopAccountRequiresExistingMaster(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, newMasterJobRepo(), accountConfig(), zap.NewNop())

	ctx := context.Background()
	shop := &ShopAccount{ProgramID: "p1", ShopID: "s1", AccountNumber: "9001"}
	repo.UpsertShopAccount(ctx, shop)

	if err := svc.MapShopAccount(ctx, shop.ID.Hex(), "1000"); err == nil {
		t.Fatal("MapShopAccount accepted a nonexistent master")
	}

	repo.UpsertMaster(ctx, &MasterAccount{AccountNumber: "1000", AccountName: "Cash"})
	if err := svc.MapShopAccount(ctx, shop.ID.Hex(), "1000"); err != nil {
		t.Fatalf("MapShopAccount: %v", err)
	}
	if repo.shops[shop.ID.Hex()].MasterAccountNumber != "1000" {
		t.Error("link not stored")
	}

	// clearing the link needs no master lookup
	if err := svc.MapShopAccount(ctx, shop.ID.Hex(), ""); err != nil {
		t.Fatalf("MapShopAccount unlink: %v", err)
	}
}

func TestUploadMasterCSV(t *testing.T) {
	repo := newFakeAccountRepo()
	jobs := newMasterJobRepo()
	svc := NewAccountService(repo, jobs, accountConfig(), zap.NewNop())

	path := filepath.Join(t.TempDir(), "master.csv")
	csvData := "account_number,account_name,category\n1000,Cash,assets\n1100,Receivables,assets\n,Broken,\n"
	if err := os.WriteFile(path, []byte(csvData), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	// an unmatched shop account that the upload should auto-link
	shop := &ShopAccount{ProgramID: "p1", ShopID: "s1", AccountNumber: "1100"}
	repo.UpsertShopAccount(context.Background(), shop)

	job, err := svc.UploadMaster(context.Background(), path, "master.csv", "u1")
	if err != nil {
		t.Fatalf("UploadMaster: %v", err)
	}
	waitFinalized(t, jobs)

	final := jobs.jobs[job.JobNumber]
	if final.Status != importjob.ImportStatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if final.SuccessfulRecords != 2 || final.FailedRecords != 1 {
		t.Errorf("counts = %d/%d, want 2/1", final.SuccessfulRecords, final.FailedRecords)
	}
	if len(jobs.importErrs) != 1 {
		t.Errorf("import errors = %d, want 1", len(jobs.importErrs))
	}
	if _, ok := repo.masters["1000"]; !ok {
		t.Error("master 1000 not upserted")
	}
	if repo.shops[shop.ID.Hex()].MasterAccountNumber != "1100" {
		t.Error("shop account not auto-linked after master upload")
	}
}

func TestUploadMasterXLSX(t *testing.T) {
	repo := newFakeAccountRepo()
	jobs := newMasterJobRepo()
	svc := NewAccountService(repo, jobs, accountConfig(), zap.NewNop())

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]interface{}{"account_number", "account_name", "category"})
	f.SetSheetRow(sheet, "A2", &[]interface{}{"2000", "Sales", "revenue"})
	path := filepath.Join(t.TempDir(), "master.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	f.Close()

	_, err := svc.UploadMaster(context.Background(), path, "master.xlsx", "u1")
	if err != nil {
		t.Fatalf("UploadMaster: %v", err)
	}
	waitFinalized(t, jobs)

	if _, ok := repo.masters["2000"]; !ok {
		t.Error("master 2000 not upserted from XLSX")
	}
}

func TestUploadMasterUnreadableFile(t *testing.T) {
	jobs := newMasterJobRepo()
	svc := NewAccountService(newFakeAccountRepo(), jobs, accountConfig(), zap.NewNop())

	job, err := svc.UploadMaster(context.Background(), "/nonexistent/master.csv", "master.csv", "u1")
	if err != nil {
		t.Fatalf("UploadMaster: %v", err)
	}
	waitFinalized(t, jobs)

	final := jobs.jobs[job.JobNumber]
	if final.Status != importjob.ImportStatusError {
		t.Errorf("status = %s, want error", final.Status)
	}
	if final.ErrorMessage == "" {
		t.Error("error message not set")
	}
}

func TestParseMasterFileRejectsLegacyXLS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.xls")
	if err := os.WriteFile(path, []byte("not a workbook"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := parseMasterFile(path, "accounts.xls")
	if err == nil {
		t.Fatal("expected an error for a legacy .xls file")
	}
	if !strings.Contains(err.Error(), ".xlsx or .csv") {
		t.Errorf("error = %v, want a message naming the supported formats", err)
	}
}

func TestTemplate(t *testing.T) {
	svc := NewAccountService(newFakeAccountRepo(), newMasterJobRepo(), accountConfig(), zap.NewNop())
	b, err := svc.Template()
	if err != nil {
		t.Fatalf("Template: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open template: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) < 2 || rows[0][0] != "account_number" {
		t.Errorf("template rows = %v, want headers plus an example row", rows)
	}
}
