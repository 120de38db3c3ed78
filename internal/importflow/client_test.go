package importflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"go-ledger/internal/features/importjob"
)

func TestClientGetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/import/jobs/12" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(importjob.ImportJob{JobNumber: 12, Status: importjob.ImportStatusProcessing, PercentageComplete: 55})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	job, err := c.GetJob(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.JobNumber != 12 || job.PercentageComplete != 55 {
		t.Errorf("job = %+v", job)
	}
}

func TestClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "required field account_number is not mapped"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.GetJob(context.Background(), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "account_number") {
		t.Errorf("error = %v, want the server message", err)
	}
}

func TestClientStageSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("program_id"); got != "p1" {
			t.Errorf("program_id = %q", got)
		}
		if got := r.FormValue("period_date"); got != "2026-08" {
			t.Errorf("period_date = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		if header.Filename != "gl.csv" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"total_rows": 4}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	session, err := c.Stage(context.Background(), StageRequest{
		ProgramID:  "p1",
		ShopID:     "s1",
		PeriodDate: "2026-08",
		FileName:   "gl.csv",
		File:       strings.NewReader("Date,Account\n"),
	})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if session.TotalRows != 4 {
		t.Errorf("TotalRows = %d, want 4", session.TotalRows)
	}
}

func TestClientLedgerExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("shop_id"); got != "s1" {
			t.Errorf("shop_id = %q", got)
		}
		w.Write([]byte(`{"exists": true, "entry_count": 9}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	exists, err := c.LedgerExists(context.Background(), "s1", "2026-08")
	if err != nil {
		t.Fatalf("LedgerExists: %v", err)
	}
	if !exists {
		t.Error("exists = false, want true")
	}
}

func TestRemoteNotifierPostsLevels(t *testing.T) {
	type posted struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	var got []posted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/api/notifications") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var p posted
		json.NewDecoder(r.Body).Decode(&p)
		got = append(got, p)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewRemoteNotifier(NewClient(srv.URL, ""), zap.NewNop())
	n.Success("imported 10 rows")
	n.Warning("2 rows rejected")
	n.Danger("import failed")

	if len(got) != 3 {
		t.Fatalf("posts = %d, want 3", len(got))
	}
	if got[0].Level != "success" || got[1].Level != "warning" || got[2].Level != "danger" {
		t.Errorf("levels = %+v", got)
	}
}
