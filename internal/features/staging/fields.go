package staging

import "go-ledger/internal/features/importjob"

// TargetFieldsFor returns the fixed target schema of an import format.
// The catalog is what the mapping step reconciles spreadsheet columns
// against; required fields gate commit.
func TargetFieldsFor(formatType importjob.FormatType) []MappingField {
	switch formatType {
	case importjob.FormatGeneralLedger:
		return []MappingField{
			{FieldName: importjob.FieldEntryDate, DisplayName: "Entry Date", Description: "Posting date of the ledger line", IsRequired: true},
			{FieldName: importjob.FieldAccountNumber, DisplayName: "Account Number", Description: "Shop chart-of-accounts number", IsRequired: true},
			{FieldName: importjob.FieldDescription, DisplayName: "Description", Description: "Free-text line description", IsRequired: false},
			{FieldName: importjob.FieldDebitAmount, DisplayName: "Debit Amount", Description: "Debit side amount", IsRequired: false},
			{FieldName: importjob.FieldCreditAmount, DisplayName: "Credit Amount", Description: "Credit side amount", IsRequired: false},
		}
	case importjob.FormatMasterAccount:
		return []MappingField{
			{FieldName: "account_number", DisplayName: "Account Number", Description: "Master account number", IsRequired: true},
			{FieldName: "account_name", DisplayName: "Account Name", Description: "Master account display name", IsRequired: true},
			{FieldName: "category", DisplayName: "Category", Description: "Statement category", IsRequired: false},
		}
	default:
		return nil
	}
}
