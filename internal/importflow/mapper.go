package importflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go-ledger/internal/features/importjob"
	"go-ledger/internal/features/staging"
)

var (
	// ErrNoStagedSession is returned by Commit when nothing has been staged.
	ErrNoStagedSession = errors.New("no staged session; upload a file first")

	// ErrNotCommittable is returned by Commit while required target fields
	// are still unmapped.
	ErrNotCommittable = errors.New("required target fields are not mapped yet")
)

// StagingMapper runs the two-phase stage-then-map protocol: upload a sheet
// into staging, associate its detected columns with the format's target
// fields, then commit the session into an import job.
//
// A mapper is bound to one operator screen and is not safe for concurrent
// use.
type StagingMapper struct {
	api API

	formatType importjob.FormatType
	session    *staging.StagedSession
	fields     map[importjob.FormatType][]staging.MappingField
	mappings   map[string]string
}

func NewStagingMapper(api API, formatType importjob.FormatType) *StagingMapper {
	return &StagingMapper{
		api:        api,
		formatType: formatType,
		fields:     make(map[importjob.FormatType][]staging.MappingField),
		mappings:   make(map[string]string),
	}
}

// Stage uploads the file and opens a staged session. Calling it again
// supersedes the previous session: the server discards the old one and the
// mappings are reset, since they referred to the old sheet's columns.
func (m *StagingMapper) Stage(ctx context.Context, req StageRequest) (*staging.StagedSession, error) {
	session, err := m.api.Stage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("staging failed: %w", err)
	}

	m.session = session
	m.mappings = make(map[string]string)
	return session, nil
}

// Session returns the current staged session, or nil before Stage succeeds.
func (m *StagingMapper) Session() *staging.StagedSession {
	return m.session
}

// LoadTargetFields returns the target schema for the mapper's format,
// fetching it from the server at most once per format.
func (m *StagingMapper) LoadTargetFields(ctx context.Context) ([]staging.MappingField, error) {
	if cached, ok := m.fields[m.formatType]; ok {
		return cached, nil
	}

	fields, err := m.api.TargetFields(ctx, m.formatType)
	if err != nil {
		return nil, err
	}
	m.fields[m.formatType] = fields
	return fields, nil
}

// SetMapping upserts one column mapping keyed by target field. A later call
// for the same target field overwrites the earlier one. The same source
// column may feed multiple target fields.
func (m *StagingMapper) SetMapping(targetField, sourceColumn string) {
	m.mappings[targetField] = sourceColumn
}

// ClearMapping removes the mapping for targetField, if any.
func (m *StagingMapper) ClearMapping(targetField string) {
	delete(m.mappings, targetField)
}

// Mappings returns the current mapping set sorted by target field.
func (m *StagingMapper) Mappings() []importjob.ColumnMapping {
	out := make([]importjob.ColumnMapping, 0, len(m.mappings))
	for target, source := range m.mappings {
		out = append(out, importjob.ColumnMapping{
			TargetField:  target,
			SourceColumn: source,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetField < out[j].TargetField })
	return out
}

// Committable reports whether every required target field has a non-empty
// source column mapped. It is the sole client-side gate on commit; row-level
// validation happens server-side after commit.
func (m *StagingMapper) Committable() bool {
	fields, ok := m.fields[m.formatType]
	if !ok {
		return false
	}
	for _, f := range fields {
		if !f.IsRequired {
			continue
		}
		if m.mappings[f.FieldName] == "" {
			return false
		}
	}
	return true
}

// Commit sends the mapping set plus period metadata and returns the job
// handle to hand to a JobPoller. Commit is a single irreversible request.
func (m *StagingMapper) Commit(ctx context.Context, importDate, periodDate string) (*importjob.ImportJob, error) {
	if m.session == nil {
		return nil, ErrNoStagedSession
	}
	if !m.Committable() {
		return nil, ErrNotCommittable
	}

	job, err := m.api.Commit(ctx, &staging.CommitRequest{
		SessionID:  m.session.ID.Hex(),
		FormatType: m.formatType,
		Mappings:   m.Mappings(),
		ImportDate: importDate,
		PeriodDate: periodDate,
	})
	if err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return job, nil
}
