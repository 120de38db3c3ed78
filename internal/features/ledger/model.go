package ledger

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is one general ledger line for a shop and accounting period.
// Entries are only ever written by the import worker; committing a new
// import for the same shop+period replaces the prior set.
type Entry struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProgramID     string             `json:"program_id" bson:"program_id"`
	ShopID        string             `json:"shop_id" bson:"shop_id"`
	PeriodDate    string             `json:"period_date" bson:"period_date"`
	EntryDate     string             `json:"entry_date" bson:"entry_date"`
	AccountNumber string             `json:"account_number" bson:"account_number"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	DebitAmount   float64            `json:"debit_amount" bson:"debit_amount"`
	CreditAmount  float64            `json:"credit_amount" bson:"credit_amount"`
	JobNumber     int                `json:"job_number" bson:"job_number"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
