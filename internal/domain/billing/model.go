// Package billing manages patient invoices and payments inside a tenant
// database. Amounts are integer cents to keep arithmetic exact.
package billing

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceIssued    InvoiceStatus = "issued"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	Number     string        `db:"number" json:"number"`
	PatientID  uuid.UUID     `db:"patient_id" json:"patient_id"`
	Status     InvoiceStatus `db:"status" json:"status"`
	TotalCents int64         `db:"total_cents" json:"total_cents"`
	PaidCents  int64         `db:"paid_cents" json:"paid_cents"`
	Currency   string        `db:"currency" json:"currency"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`

	Items    []*InvoiceItem `json:"items,omitempty"`
	Payments []*Payment     `json:"payments,omitempty"`
}

type InvoiceItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	InvoiceID      uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description    string    `db:"description" json:"description"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	AmountCents    int64     `db:"amount_cents" json:"amount_cents"`
}

type Payment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	ModeCode    string    `db:"mode_code" json:"mode_code"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Reference   *string   `db:"reference" json:"reference,omitempty"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
}

type PaymentMode struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

type CreateInvoiceRequest struct {
	PatientID uuid.UUID            `json:"patient_id" validate:"required"`
	Currency  string               `json:"currency" validate:"omitempty,iso4217"`
	Items     []CreateInvoiceItem  `json:"items" validate:"required,min=1,dive"`
}

type CreateInvoiceItem struct {
	Description    string `json:"description" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"required,min=0"`
}

type RecordPaymentRequest struct {
	ModeCode    string  `json:"mode_code" validate:"required"`
	AmountCents int64   `json:"amount_cents" validate:"required,min=1"`
	Reference   *string `json:"reference,omitempty"`
}
