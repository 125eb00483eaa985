package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*Invoice
	items    map[uuid.UUID][]*InvoiceItem
	seq      int64
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		items:    make(map[uuid.UUID][]*InvoiceItem),
	}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	stored := *inv
	stored.Items = nil
	f.invoices[inv.ID] = &stored
	return nil
}

func (f *fakeInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepo) UpdateStatus(ctx context.Context, inv *Invoice) error {
	stored, ok := f.invoices[inv.ID]
	if !ok {
		return ErrInvoiceNotFound
	}
	stored.Status = inv.Status
	stored.PaidCents = inv.PaidCents
	return nil
}

func (f *fakeInvoiceRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range f.invoices {
		if inv.PatientID == patientID {
			out = append(out, inv)
		}
	}
	return out, len(out), nil
}

func (f *fakeInvoiceRepo) NextNumberSeq(ctx context.Context) (int64, error) {
	f.seq++
	return f.seq, nil
}

func (f *fakeInvoiceRepo) AddItem(ctx context.Context, item *InvoiceItem) error {
	f.items[item.InvoiceID] = append(f.items[item.InvoiceID], item)
	return nil
}

func (f *fakeInvoiceRepo) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	return f.items[invoiceID], nil
}

type fakePaymentRepo struct {
	payments map[uuid.UUID][]*Payment
	modes    []string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[uuid.UUID][]*Payment),
		modes:    []string{"cash", "card", "mobile_money"},
	}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *Payment) error {
	f.payments[p.InvoiceID] = append(f.payments[p.InvoiceID], p)
	return nil
}

func (f *fakePaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	return f.payments[invoiceID], nil
}

func (f *fakePaymentRepo) ModeExists(ctx context.Context, code string) (bool, error) {
	for _, m := range f.modes {
		if m == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentRepo) ListModes(ctx context.Context) ([]*PaymentMode, error) {
	var out []*PaymentMode
	for _, m := range f.modes {
		out = append(out, &PaymentMode{Code: m, Name: m})
	}
	return out, nil
}

func newTestService() (*Service, *fakeInvoiceRepo, *fakePaymentRepo) {
	invoices := newFakeInvoiceRepo()
	payments := newFakePaymentRepo()
	return NewService(invoices, payments), invoices, payments
}

func createIssuedInvoice(t *testing.T, svc *Service, totalItems []CreateInvoiceItem) *Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     totalItems,
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	issued, err := svc.Issue(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return issued
}

func TestCreateInvoice_ComputesTotals(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items: []CreateInvoiceItem{
			{Description: "Consultation", Quantity: 1, UnitPriceCents: 10000},
			{Description: "Lab panel", Quantity: 2, UnitPriceCents: 7500},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inv.Number != "INV-000001" {
		t.Errorf("expected INV-000001, got %s", inv.Number)
	}
	if inv.TotalCents != 25000 {
		t.Errorf("expected total 25000, got %d", inv.TotalCents)
	}
	if inv.Status != InvoiceDraft {
		t.Errorf("expected draft, got %s", inv.Status)
	}
	if inv.Currency != "XOF" {
		t.Errorf("expected default currency XOF, got %s", inv.Currency)
	}
	if len(inv.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(inv.Items))
	}
}

func TestCreateInvoice_RequiresItems(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		PatientID: uuid.New(),
	})
	if err == nil {
		t.Error("expected validation error for empty item list")
	}
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createIssuedInvoice(t, svc, []CreateInvoiceItem{
		{Description: "Surgery", Quantity: 1, UnitPriceCents: 50000},
	})

	after, err := svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "cash", AmountCents: 20000})
	if err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}
	if after.Status != InvoiceIssued || after.PaidCents != 20000 {
		t.Errorf("after partial payment: status %s paid %d", after.Status, after.PaidCents)
	}

	after, err = svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "mobile_money", AmountCents: 30000})
	if err != nil {
		t.Fatalf("final payment failed: %v", err)
	}
	if after.Status != InvoicePaid {
		t.Errorf("expected paid after settling balance, got %s", after.Status)
	}
}

func TestRecordPayment_OverpaymentRejected(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createIssuedInvoice(t, svc, []CreateInvoiceItem{
		{Description: "Consultation", Quantity: 1, UnitPriceCents: 10000},
	})

	_, err := svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "cash", AmountCents: 10001})
	if !errors.Is(err, ErrOverpayment) {
		t.Errorf("expected ErrOverpayment, got %v", err)
	}
}

func TestRecordPayment_DraftNotPayable(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     []CreateInvoiceItem{{Description: "X", Quantity: 1, UnitPriceCents: 100}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "cash", AmountCents: 100})
	if !errors.Is(err, ErrNotPayable) {
		t.Errorf("expected ErrNotPayable, got %v", err)
	}
}

func TestRecordPayment_UnknownMode(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createIssuedInvoice(t, svc, []CreateInvoiceItem{
		{Description: "X", Quantity: 1, UnitPriceCents: 100},
	})

	_, err := svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "barter", AmountCents: 100})
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestCancel_RejectedAfterPayment(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createIssuedInvoice(t, svc, []CreateInvoiceItem{
		{Description: "X", Quantity: 1, UnitPriceCents: 1000},
	})

	if _, err := svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "cash", AmountCents: 500}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	_, err := svc.Cancel(context.Background(), inv.ID)
	if !errors.Is(err, ErrHasPayments) {
		t.Errorf("expected ErrHasPayments, got %v", err)
	}
}

func TestCancel_Draft(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		PatientID: uuid.New(),
		Items:     []CreateInvoiceItem{{Description: "X", Quantity: 1, UnitPriceCents: 100}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != InvoiceCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestGet_IncludesItemsAndPayments(t *testing.T) {
	svc, _, _ := newTestService()
	inv := createIssuedInvoice(t, svc, []CreateInvoiceItem{
		{Description: "Consultation", Quantity: 1, UnitPriceCents: 10000},
	})
	if _, err := svc.RecordPayment(context.Background(), inv.ID,
		&RecordPaymentRequest{ModeCode: "cash", AmountCents: 10000}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	full, err := svc.Get(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(full.Items) != 1 || len(full.Payments) != 1 {
		t.Errorf("expected 1 item and 1 payment, got %d and %d", len(full.Items), len(full.Payments))
	}
}
