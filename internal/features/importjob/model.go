package importjob

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ImportStatus string

const (
	ImportStatusQueued     ImportStatus = "queued"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusError      ImportStatus = "error"
)

// Terminal reports whether no further status transitions occur.
func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed || s == ImportStatusError
}

type FormatType string

const (
	FormatGeneralLedger FormatType = "general_ledger"
	FormatMasterAccount FormatType = "master_account"
)

// ColumnMapping associates a detected spreadsheet column with a target field.
// At most one mapping exists per target field; multiple target fields may
// read the same source column. Transform is an optional expression applied
// to the cell value during processing.
type ColumnMapping struct {
	TargetField  string `json:"target_field" bson:"target_field"`
	SourceColumn string `json:"source_column" bson:"source_column"`
	Transform    string `json:"transform,omitempty" bson:"transform,omitempty"`
}

// ImportJob is a server-tracked unit of asynchronous bulk-import work.
// The server is its sole writer; clients poll a read-only copy.
type ImportJob struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobNumber          int                `json:"job_number" bson:"job_number"`
	UserID             string             `json:"user_id" bson:"user_id"`
	FormatType         FormatType         `json:"format_type" bson:"format_type"`
	ProgramID          string             `json:"program_id" bson:"program_id"`
	ShopID             string             `json:"shop_id,omitempty" bson:"shop_id,omitempty"`
	PeriodDate         string             `json:"period_date,omitempty" bson:"period_date,omitempty"`
	FileName           string             `json:"file_name" bson:"file_name"`
	Status             ImportStatus       `json:"status" bson:"status"`
	TotalRecords       int                `json:"total_records" bson:"total_records"`
	ProcessedRecords   int                `json:"processed_records" bson:"processed_records"`
	SuccessfulRecords  int                `json:"successful_records" bson:"successful_records"`
	FailedRecords      int                `json:"failed_records" bson:"failed_records"`
	PercentageComplete float64            `json:"percentage_complete" bson:"percentage_complete"`
	ErrorMessage       string             `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Mappings           []ColumnMapping    `json:"mappings,omitempty" bson:"mappings,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// ImportError records one rejected input row.
type ImportError struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobNumber    int                `json:"job_number" bson:"job_number"`
	RowNumber    int                `json:"row_number" bson:"row_number"`
	ColumnName   string             `json:"column_name,omitempty" bson:"column_name,omitempty"`
	ErrorMessage string             `json:"error_message" bson:"error_message"`
}
