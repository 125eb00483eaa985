package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrUnknownMode     = errors.New("unknown payment mode")
	ErrNotPayable      = errors.New("invoice is not payable")
	ErrOverpayment     = errors.New("payment exceeds outstanding balance")
	ErrHasPayments     = errors.New("invoice has recorded payments")
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// UpdateStatus also persists paid_cents, which moves with every payment.
	UpdateStatus(ctx context.Context, inv *Invoice) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error)
	NextNumberSeq(ctx context.Context) (int64, error)

	AddItem(ctx context.Context, item *InvoiceItem) error
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
	ModeExists(ctx context.Context, code string) (bool, error)
	ListModes(ctx context.Context) ([]*PaymentMode, error)
}
