// Package importflow drives the staged-import workflow against the ledger
// API: stage an upload, map its columns onto a target schema, commit, and
// watch the resulting job to completion.
package importflow

import (
	"context"
	"io"

	"go-ledger/internal/features/account"
	"go-ledger/internal/features/importjob"
	"go-ledger/internal/features/staging"
)

// StageRequest carries one upload into staging, scoped by the operator's
// current selection.
type StageRequest struct {
	ProgramID  string
	ShopID     string
	PeriodDate string
	FileName   string
	SheetName  string
	File       io.Reader
}

// API is the slice of the server surface the import workflow consumes.
type API interface {
	SubmitMasterUpload(ctx context.Context, fileName string, file io.Reader) (*importjob.ImportJob, error)
	GetJob(ctx context.Context, jobNumber int) (*importjob.ImportJob, error)
	ListJobErrors(ctx context.Context, jobNumber int) ([]importjob.ImportError, error)
	Stage(ctx context.Context, req StageRequest) (*staging.StagedSession, error)
	TargetFields(ctx context.Context, formatType importjob.FormatType) ([]staging.MappingField, error)
	Commit(ctx context.Context, req *staging.CommitRequest) (*importjob.ImportJob, error)
	MatchingStats(ctx context.Context, programID, shopID string) (*account.MatchingStats, error)
	LedgerExists(ctx context.Context, shopID, periodDate string) (bool, error)
}

// Refresher is asked to reload the downstream list view after an import
// lands rows.
type Refresher interface {
	Refresh()
}

// Notifier surfaces workflow outcomes to the operator. Implementations must
// be non-blocking; the poll loop calls them inline.
type Notifier interface {
	Success(message string)
	Warning(message string)
	Danger(message string)
}
