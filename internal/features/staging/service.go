package staging

import (
	"context"
	"fmt"
	"os"
	"time"

	"go-ledger/internal/config"
	"go-ledger/internal/features/importjob"

	"go.uber.org/zap"
)

// CommitRequest carries the operator's mapping set plus period metadata.
type CommitRequest struct {
	SessionID  string                    `json:"session_id" validate:"required"`
	FormatType importjob.FormatType      `json:"format_type" validate:"required"`
	Mappings   []importjob.ColumnMapping `json:"mappings" validate:"required,min=1"`
	ImportDate string                    `json:"import_date"`
	PeriodDate string                    `json:"period_date" validate:"required"`
}

type StagingService interface {
	Stage(ctx context.Context, session *StagedSession) (*StagedSession, error)
	GetSession(ctx context.Context, id string) (*StagedSession, error)
	Discard(ctx context.Context, id string) error
	Commit(ctx context.Context, req *CommitRequest, userID string) (*importjob.ImportJob, error)
	CleanupStale(ctx context.Context) (int, error)
}

type StagingServiceImpl struct {
	StagingRepo      StagingRepository
	ImportJobService importjob.ImportJobService
	Config           *config.Config
	Logger           *zap.Logger
}

func NewStagingService(stagingRepo StagingRepository, importJobService importjob.ImportJobService, cfg *config.Config, log *zap.Logger) StagingService {
	return &StagingServiceImpl{
		StagingRepo:      stagingRepo,
		ImportJobService: importJobService,
		Config:           cfg,
		Logger:           log,
	}
}

// Stage parses the saved upload and persists the resulting session. The
// session arrives with file metadata and scope set; column detection and
// previews are filled in here. Any prior staged session for the same
// program/shop/period is discarded first.
func (s *StagingServiceImpl) Stage(ctx context.Context, session *StagedSession) (*StagedSession, error) {
	file, err := os.Open(session.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer file.Close()

	headers, rows, err := parseSheet(file, session.FileName, session.SheetName)
	if err != nil {
		return nil, err
	}

	session.DetectedColumns = detectColumns(headers, rows, s.Config.SampleValues)
	if len(session.DetectedColumns) == 0 {
		return nil, fmt.Errorf("no columns detected in %s", session.FileName)
	}

	session.TotalRows = len(rows)
	limit := s.Config.PreviewRows
	if limit > len(rows) {
		limit = len(rows)
	}
	session.PreviewRows = rows[:limit]

	if err := s.StagingRepo.DiscardStaged(ctx, session.ProgramID, session.ShopID, session.PeriodDate); err != nil {
		return nil, fmt.Errorf("failed to discard prior sessions: %w", err)
	}

	if err := s.StagingRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.Logger.Info("Staged import session",
		zap.String("session_id", session.ID.Hex()),
		zap.String("program_id", session.ProgramID),
		zap.Int("total_rows", session.TotalRows),
		zap.Int("columns", len(session.DetectedColumns)))

	return session, nil
}

func (s *StagingServiceImpl) GetSession(ctx context.Context, id string) (*StagedSession, error) {
	return s.StagingRepo.Get(ctx, id)
}

func (s *StagingServiceImpl) Discard(ctx context.Context, id string) error {
	return s.StagingRepo.UpdateStatus(ctx, id, SessionStatusDiscarded)
}

// Commit validates the mapping set against the format's required fields,
// creates the import job and starts the processing worker. The job handle
// is returned immediately; callers poll it to completion.
func (s *StagingServiceImpl) Commit(ctx context.Context, req *CommitRequest, userID string) (*importjob.ImportJob, error) {
	session, err := s.StagingRepo.Get(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("staged session not found: %w", err)
	}
	if session.Status != SessionStatusStaged {
		return nil, fmt.Errorf("session is %s, not staged", session.Status)
	}

	if err := validateMappings(req.FormatType, req.Mappings); err != nil {
		return nil, err
	}

	job := &importjob.ImportJob{
		UserID:       userID,
		FormatType:   req.FormatType,
		ProgramID:    session.ProgramID,
		ShopID:       session.ShopID,
		PeriodDate:   req.PeriodDate,
		FileName:     session.FileName,
		Mappings:     req.Mappings,
		TotalRecords: session.TotalRows,
	}
	if err := s.ImportJobService.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.StagingRepo.UpdateStatus(ctx, req.SessionID, SessionStatusCommitted); err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()

		file, err := os.Open(session.FilePath)
		if err != nil {
			s.Logger.Error("Staged file unreadable at commit",
				zap.Int("job_number", job.JobNumber), zap.Error(err))
			s.ImportJobService.FailJob(bgCtx, job.JobNumber, fmt.Sprintf("staged file unreadable: %v", err))
			return
		}
		defer file.Close()

		_, rows, err := parseSheet(file, session.FileName, session.SheetName)
		if err != nil {
			s.ImportJobService.FailJob(bgCtx, job.JobNumber, fmt.Sprintf("failed to re-read staged sheet: %v", err))
			return
		}

		if err := s.ImportJobService.ProcessLedgerRows(bgCtx, job.JobNumber, rows); err != nil {
			s.Logger.Error("Import processing failed",
				zap.Int("job_number", job.JobNumber), zap.Error(err))
		}
	}()

	return job, nil
}

// CleanupStale deletes staged/discarded sessions past the configured TTL
// along with their files. Scheduled from the cron runner.
func (s *StagingServiceImpl) CleanupStale(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.Config.StagingTTL)
	sessions, err := s.StagingRepo.FindStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, session := range sessions {
		if session.FilePath != "" {
			if err := os.Remove(session.FilePath); err != nil && !os.IsNotExist(err) {
				s.Logger.Warn("Failed to remove staged file",
					zap.String("path", session.FilePath), zap.Error(err))
			}
		}
		if err := s.StagingRepo.Delete(ctx, session.ID.Hex()); err != nil {
			s.Logger.Warn("Failed to delete stale session",
				zap.String("session_id", session.ID.Hex()), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.Logger.Info("Purged stale staging sessions", zap.Int("removed", removed))
	}
	return removed, nil
}

// validateMappings enforces the commit gate server-side as well: every
// required target field needs a non-empty source column.
func validateMappings(formatType importjob.FormatType, mappings []importjob.ColumnMapping) error {
	fields := TargetFieldsFor(formatType)
	if fields == nil {
		return fmt.Errorf("unknown format type: %s", formatType)
	}

	bySource := make(map[string]string, len(mappings))
	for _, m := range mappings {
		bySource[m.TargetField] = m.SourceColumn
	}

	for _, f := range fields {
		if !f.IsRequired {
			continue
		}
		if bySource[f.FieldName] == "" {
			return fmt.Errorf("required field %s is not mapped", f.FieldName)
		}
	}
	return nil
}

// detectColumns builds the detected-column list with sample values pulled
// from the first rows.
func detectColumns(headers []string, rows []map[string]string, sampleLimit int) []DetectedColumn {
	var columns []DetectedColumn
	for i, header := range headers {
		if header == "" {
			continue
		}
		col := DetectedColumn{
			ColumnName:  header,
			ColumnIndex: i,
		}
		for _, row := range rows {
			if len(col.SampleValues) >= sampleLimit {
				break
			}
			if v := row[header]; v != "" {
				col.SampleValues = append(col.SampleValues, v)
			}
		}
		columns = append(columns, col)
	}
	return columns
}
