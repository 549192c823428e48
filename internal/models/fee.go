package models

import "time"

// FineType describes how a late fine is computed for a fee master.
type FineType string

const (
	FineTypeNone       FineType = "None"
	FineTypeFixed      FineType = "Fixed"
	FineTypePercentage FineType = "Percentage"
)

// FeeStatus is the derived payment state of an obligation.
type FeeStatus string

const (
	FeeStatusUnpaid  FeeStatus = "unpaid"
	FeeStatusPartial FeeStatus = "partial"
	FeeStatusPaid    FeeStatus = "paid"
)

// Valid reports whether s is a known status.
func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusUnpaid, FeeStatusPartial, FeeStatusPaid:
		return true
	}
	return false
}

// PaymentMode enumerates accepted collection channels.
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeCheque       PaymentMode = "Cheque"
	PaymentModeDD           PaymentMode = "DD"
	PaymentModeBankTransfer PaymentMode = "Bank Transfer"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeCard         PaymentMode = "Card"
	PaymentModeOnline       PaymentMode = "Online"
)

// FeeGroup bundles related fee types, e.g. "Class 10 Annual".
type FeeGroup struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description *string   `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	Version     int64     `json:"version" bson:"version"`
}

// FeeType is a billable category inside a group, e.g. "Tuition".
type FeeType struct {
	ID          string    `json:"id" bson:"_id"`
	FeeGroupID  string    `json:"feeGroupId" bson:"feeGroupId"`
	Name        string    `json:"name" bson:"name"`
	Code        string    `json:"code" bson:"code"`
	Description *string   `json:"description,omitempty" bson:"description,omitempty"`
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	Version     int64     `json:"version" bson:"version"`
}

// FeeMaster is a billing rule shared by many students.
type FeeMaster struct {
	ID         string    `json:"id" bson:"_id"`
	FeeGroupID string    `json:"feeGroupId" bson:"feeGroupId"`
	FeeTypeID  string    `json:"feeTypeId" bson:"feeTypeId"`
	SessionID  *string   `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	DueDate    string    `json:"dueDate" bson:"dueDate"`
	Amount     float64   `json:"amount" bson:"amount"`
	FineType   FineType  `json:"fineType" bson:"fineType"`
	FineAmount *float64  `json:"fineAmount,omitempty" bson:"fineAmount,omitempty"`
	IsActive   bool      `json:"isActive" bson:"isActive"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	Version    int64     `json:"version" bson:"version"`
}

// StudentFee is one student's obligation under one fee master. AmountPaid only
// grows; Status and IsPaid are derived from it.
type StudentFee struct {
	ID            string    `json:"id" bson:"_id"`
	StudentID     string    `json:"studentId" bson:"studentId"`
	FeeMasterID   string    `json:"feeMasterId" bson:"feeMasterId"`
	AmountPaid    float64   `json:"amountPaid" bson:"amountPaid"`
	Status        FeeStatus `json:"status" bson:"status"`
	IsPaid        bool      `json:"isPaid" bson:"isPaid"`
	PaymentDate   *string   `json:"paymentDate,omitempty" bson:"paymentDate,omitempty"`
	PaymentMode   *string   `json:"paymentMode,omitempty" bson:"paymentMode,omitempty"`
	TransactionID *string   `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	Discount      *float64  `json:"discount,omitempty" bson:"discount,omitempty"`
	Fine          *float64  `json:"fine,omitempty" bson:"fine,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
	Version       int64     `json:"version" bson:"version"`
}

// FeePayment is an append-only record of a single collectFee call.
type FeePayment struct {
	ID              string    `json:"id" bson:"_id"`
	ObligationID    string    `json:"obligationId" bson:"obligationId"`
	StudentID       string    `json:"studentId" bson:"studentId"`
	FeeMasterID     string    `json:"feeMasterId" bson:"feeMasterId"`
	Amount          float64   `json:"amount" bson:"amount"`
	PaymentMode     string    `json:"paymentMode" bson:"paymentMode"`
	TransactionID   *string   `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	Discount        *float64  `json:"discount,omitempty" bson:"discount,omitempty"`
	Fine            *float64  `json:"fine,omitempty" bson:"fine,omitempty"`
	PaymentDate     string    `json:"paymentDate" bson:"paymentDate"`
	AmountPaidAfter float64   `json:"amountPaidAfter" bson:"amountPaidAfter"`
	StatusAfter     FeeStatus `json:"statusAfter" bson:"statusAfter"`
	RecordedBy      *string   `json:"recordedBy,omitempty" bson:"recordedBy,omitempty"`
	RecordedAt      time.Time `json:"recordedAt" bson:"recordedAt"`
}
