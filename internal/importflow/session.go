package importflow

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"go-ledger/internal/features/importjob"
)

// Step identifies a stage of the import workflow.
type Step int

const (
	// StepSelect collects program, shop and period from the operator.
	StepSelect Step = iota
	// StepUpload stages the spreadsheet.
	StepUpload
	// StepMap maps detected columns onto target fields and commits.
	StepMap
)

func (s Step) String() string {
	switch s {
	case StepSelect:
		return "select"
	case StepUpload:
		return "upload"
	case StepMap:
		return "map"
	default:
		return "unknown"
	}
}

// SessionContext is the ambient selection every workflow operation is scoped
// by. It is explicit state passed through the controller, never a global.
type SessionContext struct {
	ProgramID  string
	ShopIDs    []string
	PeriodDate string
}

func (c SessionContext) complete() bool {
	return c.ProgramID != "" && len(c.ShopIDs) > 0 && c.PeriodDate != ""
}

// SessionController sequences the three-step import workflow and gates
// forward progress. Network failures never surface as returned errors from
// the navigation methods; they are absorbed and reported through the
// notifier so the operator stays on the current step and can retry.
type SessionController struct {
	api      API
	notifier Notifier
	logger   *zap.Logger

	step       Step
	selection  SessionContext
	formatType importjob.FormatType
	mapper     *StagingMapper
	stagedShop string
}

func NewSessionController(api API, notifier Notifier, logger *zap.Logger) *SessionController {
	return &SessionController{
		api:        api,
		notifier:   notifier,
		logger:     logger,
		step:       StepSelect,
		formatType: importjob.FormatGeneralLedger,
	}
}

// Step returns the workflow's current step.
func (c *SessionController) Step() Step {
	return c.step
}

// Selection returns the current ambient selection.
func (c *SessionController) Selection() SessionContext {
	return c.selection
}

// Mapper exposes the staging mapper for the map step, or nil before a file
// has been staged.
func (c *SessionController) Mapper() *StagingMapper {
	return c.mapper
}

// SetSelection records the operator's program/shop/period choice. Changing
// the selection does not discard a staged session; re-staging does.
func (c *SessionController) SetSelection(sel SessionContext) {
	c.selection = sel
}

// SetFormatType picks the import format used for staging and mapping.
func (c *SessionController) SetFormatType(ft importjob.FormatType) {
	c.formatType = ft
}

// CanProceed checks the chart-of-accounts reconciliation gate for every
// selected shop: each needs at least one shop account and zero unmatched
// accounts. Ledger import against an unreconciled chart is meaningless, so
// this gate is hard.
func (c *SessionController) CanProceed(ctx context.Context) bool {
	if !c.selection.complete() {
		return false
	}
	for _, shopID := range c.selection.ShopIDs {
		stats, err := c.api.MatchingStats(ctx, c.selection.ProgramID, shopID)
		if err != nil {
			c.logger.Warn("matching stats lookup failed",
				zap.String("shop_id", shopID), zap.Error(err))
			return false
		}
		if stats.TotalShopAccounts == 0 ||
			stats.UnmatchedAccounts != 0 ||
			stats.MatchedAccounts != stats.TotalShopAccounts {
			return false
		}
	}
	return true
}

// Next advances the workflow one step if the current step's gate passes.
// It reports whether the step advanced; a false return means a gate failed
// and the operator was told why.
func (c *SessionController) Next(ctx context.Context) bool {
	switch c.step {
	case StepSelect:
		if !c.selection.complete() {
			c.notifier.Warning("select a program, at least one shop and a period first")
			return false
		}
		if !c.CanProceed(ctx) {
			c.notifier.Danger("the chart of accounts is not fully matched for the selected shops")
			return false
		}
		c.warnIfLedgerExists(ctx)
		c.step = StepUpload
		return true
	case StepUpload:
		if c.mapper == nil || c.mapper.Session() == nil {
			c.notifier.Warning("upload and stage a file first")
			return false
		}
		c.step = StepMap
		return true
	default:
		return false
	}
}

// Previous moves one step back without discarding any collected state.
func (c *SessionController) Previous() {
	if c.step > StepSelect {
		c.step--
	}
}

// Reset clears all workflow state and returns to the selection step.
func (c *SessionController) Reset() {
	c.step = StepSelect
	c.selection = SessionContext{}
	c.formatType = importjob.FormatGeneralLedger
	c.mapper = nil
	c.stagedShop = ""
}

// Upload stages the given file for one of the selected shops. On rejection
// the operator is notified and the workflow stays on the upload step.
func (c *SessionController) Upload(ctx context.Context, shopID, fileName, sheetName string, file io.Reader) bool {
	if !c.selectedShop(shopID) {
		c.notifier.Warning(fmt.Sprintf("shop %s is not part of the current selection", shopID))
		return false
	}

	mapper := NewStagingMapper(c.api, c.formatType)
	session, err := mapper.Stage(ctx, StageRequest{
		ProgramID:  c.selection.ProgramID,
		ShopID:     shopID,
		PeriodDate: c.selection.PeriodDate,
		FileName:   fileName,
		SheetName:  sheetName,
		File:       file,
	})
	if err != nil {
		c.logger.Warn("staging rejected", zap.String("shop_id", shopID), zap.Error(err))
		c.notifier.Danger(err.Error())
		return false
	}

	c.mapper = mapper
	c.stagedShop = shopID
	c.notifier.Success(fmt.Sprintf("staged %d rows from %s", session.TotalRows, fileName))
	return true
}

// CommitSession commits the mapped session and returns the job handle, or
// nil when the commit gate fails or the server rejects the request.
func (c *SessionController) CommitSession(ctx context.Context, importDate string) *importjob.ImportJob {
	if c.step != StepMap || c.mapper == nil {
		c.notifier.Warning("map the staged columns before committing")
		return nil
	}
	if !c.mapper.Committable() {
		c.notifier.Warning("map every required field before committing")
		return nil
	}

	job, err := c.mapper.Commit(ctx, importDate, c.selection.PeriodDate)
	if err != nil {
		c.logger.Warn("commit rejected", zap.Error(err))
		c.notifier.Danger(err.Error())
		return nil
	}
	return job
}

// warnIfLedgerExists is informational only: committing replaces prior
// entries server-side, so existing data never blocks progress.
func (c *SessionController) warnIfLedgerExists(ctx context.Context) {
	for _, shopID := range c.selection.ShopIDs {
		exists, err := c.api.LedgerExists(ctx, shopID, c.selection.PeriodDate)
		if err != nil {
			c.logger.Warn("existing ledger check failed",
				zap.String("shop_id", shopID), zap.Error(err))
			continue
		}
		if exists {
			c.notifier.Warning(fmt.Sprintf(
				"a general ledger already exists for shop %s in %s; importing will replace it",
				shopID, c.selection.PeriodDate))
		}
	}
}

func (c *SessionController) selectedShop(shopID string) bool {
	for _, id := range c.selection.ShopIDs {
		if id == shopID {
			return true
		}
	}
	return false
}
