package models

import "time"

// CashbookKind distinguishes the income ledger from the expense ledger.
type CashbookKind string

const (
	CashbookIncome  CashbookKind = "income"
	CashbookExpense CashbookKind = "expense"
)

// Valid reports whether k names a known ledger.
func (k CashbookKind) Valid() bool {
	return k == CashbookIncome || k == CashbookExpense
}

// Head categorises income or expense entries.
type Head struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description *string   `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	Version     int64     `json:"version" bson:"version"`
}

// CashEntry is a miscellaneous (non-fee) income or expense record. Date is
// YYYY-MM-DD so range filters can compare strings.
type CashEntry struct {
	ID            string    `json:"id" bson:"_id"`
	HeadID        string    `json:"headId" bson:"headId"`
	Name          string    `json:"name" bson:"name"`
	InvoiceNumber *string   `json:"invoiceNumber,omitempty" bson:"invoiceNumber,omitempty"`
	Date          string    `json:"date" bson:"date"`
	Amount        float64   `json:"amount" bson:"amount"`
	Description   *string   `json:"description,omitempty" bson:"description,omitempty"`
	CreatedBy     *string   `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	Version       int64     `json:"version" bson:"version"`
}

// CashEntryFilter narrows cashbook listings. Empty fields are ignored.
type CashEntryFilter struct {
	HeadID    string
	StartDate string
	EndDate   string
}
