package importflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-ledger/internal/features/account"
	"go-ledger/internal/features/importjob"
	"go-ledger/internal/features/staging"
)

// Client is the HTTP implementation of API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) SubmitMasterUpload(ctx context.Context, fileName string, file io.Reader) (*importjob.ImportJob, error) {
	body, contentType, err := multipartBody(map[string]string{}, "file", fileName, file)
	if err != nil {
		return nil, err
	}

	var job importjob.ImportJob
	if err := c.do(ctx, http.MethodPost, "/api/accounts/master/upload", contentType, body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetJob(ctx context.Context, jobNumber int) (*importjob.ImportJob, error) {
	var job importjob.ImportJob
	if err := c.do(ctx, http.MethodGet, "/api/import/jobs/"+strconv.Itoa(jobNumber), "", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) ListJobErrors(ctx context.Context, jobNumber int) ([]importjob.ImportError, error) {
	var errs []importjob.ImportError
	if err := c.do(ctx, http.MethodGet, "/api/import/jobs/"+strconv.Itoa(jobNumber)+"/errors", "", nil, &errs); err != nil {
		return nil, err
	}
	return errs, nil
}

func (c *Client) Stage(ctx context.Context, req StageRequest) (*staging.StagedSession, error) {
	fields := map[string]string{
		"program_id":  req.ProgramID,
		"shop_id":     req.ShopID,
		"period_date": req.PeriodDate,
		"sheet_name":  req.SheetName,
	}
	body, contentType, err := multipartBody(fields, "file", req.FileName, req.File)
	if err != nil {
		return nil, err
	}

	var session staging.StagedSession
	if err := c.do(ctx, http.MethodPost, "/api/staging/sessions", contentType, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) TargetFields(ctx context.Context, formatType importjob.FormatType) ([]staging.MappingField, error) {
	var fields []staging.MappingField
	if err := c.do(ctx, http.MethodGet, "/api/staging/target-fields/"+string(formatType), "", nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (c *Client) Commit(ctx context.Context, req *staging.CommitRequest) (*importjob.ImportJob, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var job importjob.ImportJob
	path := "/api/staging/sessions/" + req.SessionID + "/commit"
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) MatchingStats(ctx context.Context, programID, shopID string) (*account.MatchingStats, error) {
	q := url.Values{"program_id": {programID}, "shop_id": {shopID}}

	var stats account.MatchingStats
	if err := c.do(ctx, http.MethodGet, "/api/accounts/matching-stats?"+q.Encode(), "", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) LedgerExists(ctx context.Context, shopID, periodDate string) (bool, error) {
	q := url.Values{"shop_id": {shopID}, "period_date": {periodDate}}

	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ledger/exists?"+q.Encode(), "", nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func multipartBody(fields map[string]string, fileField, fileName string, file io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}
