package account

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MasterAccount is one row of the platform-wide reference chart of accounts.
type MasterAccount struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AccountNumber string             `json:"account_number" bson:"account_number" csv:"account_number"`
	AccountName   string             `json:"account_name" bson:"account_name" csv:"account_name"`
	Category      string             `json:"category,omitempty" bson:"category,omitempty" csv:"category"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at" csv:"-"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at" csv:"-"`
}

// ShopAccount is a shop's own chart-of-accounts row, optionally reconciled
// against a master account. Ledger import is gated on every shop account
// being matched.
type ShopAccount struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProgramID           string             `json:"program_id" bson:"program_id"`
	ShopID              string             `json:"shop_id" bson:"shop_id"`
	AccountNumber       string             `json:"account_number" bson:"account_number"`
	AccountName         string             `json:"account_name" bson:"account_name"`
	MasterAccountNumber string             `json:"master_account_number,omitempty" bson:"master_account_number,omitempty"`
	CreatedAt           time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" bson:"updated_at"`
}

// MatchingStats summarizes the reconciliation state for a shop.
type MatchingStats struct {
	TotalShopAccounts int     `json:"total_shop_accounts"`
	MatchedAccounts   int     `json:"matched_accounts"`
	UnmatchedAccounts int     `json:"unmatched_accounts"`
	MatchRate         float64 `json:"match_rate"`
}
