package staging

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionStatus string

const (
	SessionStatusStaged    SessionStatus = "staged"
	SessionStatusCommitted SessionStatus = "committed"
	SessionStatusDiscarded SessionStatus = "discarded"
)

// DetectedColumn is one column found in the staged sheet, with a few sample
// values so the operator can recognize what it holds.
type DetectedColumn struct {
	ColumnName   string   `json:"column_name" bson:"column_name"`
	ColumnIndex  int      `json:"column_index" bson:"column_index"`
	SampleValues []string `json:"sample_values" bson:"sample_values"`
}

// StagedSession holds a parsed upload between staging and commit. Sessions
// are immutable once created; re-staging the same program/shop/period
// supersedes the prior session rather than updating it.
type StagedSession struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	UserID          string              `json:"user_id" bson:"user_id"`
	ProgramID       string              `json:"program_id" bson:"program_id"`
	ShopID          string              `json:"shop_id" bson:"shop_id"`
	PeriodDate      string              `json:"period_date" bson:"period_date"`
	FileName        string              `json:"file_name" bson:"file_name"`
	FilePath        string              `json:"file_path" bson:"file_path"`
	SheetName       string              `json:"sheet_name,omitempty" bson:"sheet_name,omitempty"`
	DetectedColumns []DetectedColumn    `json:"detected_columns" bson:"detected_columns"`
	PreviewRows     []map[string]string `json:"preview_rows" bson:"preview_rows"`
	TotalRows       int                 `json:"total_rows" bson:"total_rows"`
	Status          SessionStatus       `json:"status" bson:"status"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}

// MappingField is one target field of an import format.
type MappingField struct {
	FieldName   string `json:"field_name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"is_required"`
}
