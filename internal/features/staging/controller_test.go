package staging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"go-ledger/internal/config"
	"go-ledger/internal/features/importjob"
)

type stubStagingService struct {
	staged    *StagedSession
	stageErr  error
	committed *CommitRequest
	commitJob *importjob.ImportJob
	commitErr error
	discarded []string
}

func (s *stubStagingService) Stage(ctx context.Context, session *StagedSession) (*StagedSession, error) {
	if s.stageErr != nil {
		return nil, s.stageErr
	}
	s.staged = session
	out := *session
	out.Status = SessionStatusStaged
	out.TotalRows = 3
	return &out, nil
}

func (s *stubStagingService) GetSession(ctx context.Context, id string) (*StagedSession, error) {
	return nil, errors.New("not found")
}

func (s *stubStagingService) Discard(ctx context.Context, id string) error {
	s.discarded = append(s.discarded, id)
	return nil
}

func (s *stubStagingService) Commit(ctx context.Context, req *CommitRequest, userID string) (*importjob.ImportJob, error) {
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	s.committed = req
	return s.commitJob, nil
}

func (s *stubStagingService) CleanupStale(ctx context.Context) (int, error) { return 0, nil }

func newStagingTestApp(t *testing.T, svc StagingService) *fiber.App {
	t.Helper()
	cfg := &config.Config{SkipAuth: true, FSPath: t.TempDir()}
	app := fiber.New()
	NewStagingApi(NewStagingController(svc, cfg), cfg).Setup(app)
	return app
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, fileBody string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write([]byte(fileBody))
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestCreateSessionHandler(t *testing.T) {
	svc := &stubStagingService{}
	app := newStagingTestApp(t, svc)

	body, contentType := multipartUpload(t, map[string]string{
		"program_id":  "p1",
		"shop_id":     "s1",
		"period_date": "2026-08",
	}, "ledger.csv", "Date,Account,Amount\n2026-08-01,1001,500\n")

	req := httptest.NewRequest(http.MethodPost, "/api/staging/sessions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var session StagedSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.FileName != "ledger.csv" || session.TotalRows != 3 {
		t.Errorf("session = %+v", session)
	}
	if svc.staged == nil || svc.staged.ProgramID != "p1" || svc.staged.ShopID != "s1" {
		t.Errorf("staged = %+v", svc.staged)
	}
	if svc.staged.FilePath == "" {
		t.Error("FilePath not set on the staged session")
	}
}

func TestCreateSessionHandlerRequiresContext(t *testing.T) {
	app := newStagingTestApp(t, &stubStagingService{})

	body, contentType := multipartUpload(t, map[string]string{"program_id": "p1"}, "ledger.csv", "Date\n")
	req := httptest.NewRequest(http.MethodPost, "/api/staging/sessions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateSessionHandlerRequiresFile(t *testing.T) {
	app := newStagingTestApp(t, &stubStagingService{})

	body, contentType := multipartUpload(t, map[string]string{
		"program_id":  "p1",
		"shop_id":     "s1",
		"period_date": "2026-08",
	}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/api/staging/sessions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateSessionHandlerSurfacesStagingError(t *testing.T) {
	svc := &stubStagingService{stageErr: errors.New("the selected sheet has no columns")}
	app := newStagingTestApp(t, svc)

	body, contentType := multipartUpload(t, map[string]string{
		"program_id":  "p1",
		"shop_id":     "s1",
		"period_date": "2026-08",
	}, "empty.csv", "")
	req := httptest.NewRequest(http.MethodPost, "/api/staging/sessions", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(apiErr.Error, "no columns") {
		t.Errorf("error = %q", apiErr.Error)
	}
}

func TestCommitSessionHandler(t *testing.T) {
	svc := &stubStagingService{commitJob: &importjob.ImportJob{JobNumber: 11, Status: importjob.ImportStatusQueued}}
	app := newStagingTestApp(t, svc)

	payload, _ := json.Marshal(CommitRequest{
		FormatType: importjob.FormatGeneralLedger,
		Mappings: []importjob.ColumnMapping{
			{TargetField: "entry_date", SourceColumn: "Date"},
			{TargetField: "account_number", SourceColumn: "Account"},
		},
		PeriodDate: "2026-08",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/staging/sessions/abc123/commit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var job importjob.ImportJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.JobNumber != 11 {
		t.Errorf("job = %+v", job)
	}
	if svc.committed == nil || svc.committed.SessionID != "abc123" {
		t.Errorf("commit request = %+v, want session id from the path", svc.committed)
	}
}

func TestCommitSessionHandlerValidatesPayload(t *testing.T) {
	app := newStagingTestApp(t, &stubStagingService{})

	// No mappings and no period date.
	payload, _ := json.Marshal(CommitRequest{FormatType: importjob.FormatGeneralLedger})
	req := httptest.NewRequest(http.MethodPost, "/api/staging/sessions/abc123/commit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDiscardSessionHandler(t *testing.T) {
	svc := &stubStagingService{}
	app := newStagingTestApp(t, svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/staging/sessions/abc123", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(svc.discarded) != 1 || svc.discarded[0] != "abc123" {
		t.Errorf("discarded = %v", svc.discarded)
	}
}

func TestListTargetFieldsHandler(t *testing.T) {
	app := newStagingTestApp(t, &stubStagingService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/staging/target-fields/general_ledger", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var fields []MappingField
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) == 0 {
		t.Fatal("no target fields returned")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/staging/target-fields/bogus", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", resp.StatusCode)
	}
}
