package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/his/his/internal/tenancy"
)

type invoiceRepoPG struct{}

func NewInvoiceRepoPG() InvoiceRepository { return &invoiceRepoPG{} }

const invoiceCols = `id, number, patient_id, status, total_cents, paid_cents, currency, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.PatientID, &inv.Status,
		&inv.TotalCents, &inv.PaidCents, &inv.Currency, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO invoices (id, number, patient_id, status, total_cents, paid_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.Number, inv.PatientID, inv.Status, inv.TotalCents, inv.PaidCents, inv.Currency)
	return err
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
}

func (r *invoiceRepoPG) UpdateStatus(ctx context.Context, inv *Invoice) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE invoices SET status = $2, paid_cents = $3, updated_at = NOW()
		WHERE id = $1`,
		inv.ID, inv.Status, inv.PaidCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *invoiceRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Invoice, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+invoiceCols+` FROM invoices
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func (r *invoiceRepoPG) NextNumberSeq(ctx context.Context) (int64, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n)
	return n, err
}

func (r *invoiceRepoPG) AddItem(ctx context.Context, item *InvoiceItem) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price_cents, amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitPriceCents, item.AmountCents)
	return err
}

func (r *invoiceRepoPG) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price_cents, amount_cents
		FROM invoice_items WHERE invoice_id = $1 ORDER BY description`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPriceCents, &item.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

type paymentRepoPG struct{}

func NewPaymentRepoPG() PaymentRepository { return &paymentRepoPG{} }

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO payments (id, invoice_id, mode_code, amount_cents, reference)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.InvoiceID, p.ModeCode, p.AmountCents, p.Reference)
	return err
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, mode_code, amount_cents, reference, received_at
		FROM payments WHERE invoice_id = $1 ORDER BY received_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.ModeCode,
			&p.AmountCents, &p.Reference, &p.ReceivedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

func (r *paymentRepoPG) ModeExists(ctx context.Context, code string) (bool, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	err = q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_modes WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

func (r *paymentRepoPG) ListModes(ctx context.Context) ([]*PaymentMode, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT code, name FROM payment_modes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modes []*PaymentMode
	for rows.Next() {
		var m PaymentMode
		if err := rows.Scan(&m.Code, &m.Name); err != nil {
			return nil, err
		}
		modes = append(modes, &m)
	}
	return modes, rows.Err()
}
