package billing

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	invoices InvoiceRepository
	payments PaymentRepository
	validate *validator.Validate
}

func NewService(invoices InvoiceRepository, payments PaymentRepository) *Service {
	return &Service{invoices: invoices, payments: payments, validate: validator.New()}
}

// CreateInvoice creates a draft invoice with a sequential number of the form
// INV-000001 and computes line and total amounts server-side.
func (s *Service) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	seq, err := s.invoices.NextNumberSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve invoice number: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "XOF"
	}

	inv := &Invoice{
		ID:        uuid.New(),
		Number:    fmt.Sprintf("INV-%06d", seq),
		PatientID: req.PatientID,
		Status:    InvoiceDraft,
		Currency:  currency,
	}
	for _, item := range req.Items {
		amount := int64(item.Quantity) * item.UnitPriceCents
		inv.TotalCents += amount
		inv.Items = append(inv.Items, &InvoiceItem{
			InvoiceID:      inv.ID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			AmountCents:    amount,
		})
	}

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	for _, item := range inv.Items {
		if err := s.invoices.AddItem(ctx, item); err != nil {
			return nil, fmt.Errorf("add invoice item: %w", err)
		}
	}
	return inv, nil
}

// Issue moves a draft invoice to issued, making it payable.
func (s *Service) Issue(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvoiceDraft {
		return nil, fmt.Errorf("invoice %s is %s, only drafts can be issued", inv.Number, inv.Status)
	}
	inv.Status = InvoiceIssued
	if err := s.invoices.UpdateStatus(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// RecordPayment applies a payment to an issued invoice. Overpayment is
// rejected; when the balance reaches zero the invoice becomes paid.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req *RecordPaymentRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	ok, err := s.payments.ModeExists(ctx, req.ModeCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, req.ModeCode)
	}

	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != InvoiceIssued {
		return nil, fmt.Errorf("%w: invoice %s is %s", ErrNotPayable, inv.Number, inv.Status)
	}
	if inv.PaidCents+req.AmountCents > inv.TotalCents {
		return nil, ErrOverpayment
	}

	if err := s.payments.Create(ctx, &Payment{
		InvoiceID:   invoiceID,
		ModeCode:    req.ModeCode,
		AmountCents: req.AmountCents,
		Reference:   req.Reference,
	}); err != nil {
		return nil, err
	}

	inv.PaidCents += req.AmountCents
	if inv.PaidCents == inv.TotalCents {
		inv.Status = InvoicePaid
	}
	if err := s.invoices.UpdateStatus(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Cancel voids an invoice. Invoices with recorded payments cannot be
// cancelled; they must be settled or corrected with a counter-invoice.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.PaidCents > 0 {
		return nil, ErrHasPayments
	}
	if inv.Status == InvoiceCancelled {
		return inv, nil
	}
	inv.Status = InvoiceCancelled
	if err := s.invoices.UpdateStatus(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Get loads an invoice with its line items and payments.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Items, err = s.invoices.GetItems(ctx, id); err != nil {
		return nil, err
	}
	if inv.Payments, err = s.payments.ListByInvoice(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) PaymentModes(ctx context.Context) ([]*PaymentMode, error) {
	return s.payments.ListModes(ctx)
}
