package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

type recordedExec struct {
	sql  string
	args []any
}

// fakeTenantDB satisfies db.Queryable and records every Exec so tests can
// assert on the statements the setup code would send to a tenant database.
type fakeTenantDB struct {
	adminExists bool
	execs       []recordedExec
}

func (f *fakeTenantDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTenantDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query: " + sql)
}

func (f *fakeTenantDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return existsRow{exists: f.adminExists}
}

type existsRow struct {
	exists bool
}

func (r existsRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.exists
	return nil
}

// highestPlaceholder returns the largest $N referenced in a statement.
func highestPlaceholder(sql string) int {
	max := 0
	for n := 1; ; n++ {
		if !strings.Contains(sql, fmt.Sprintf("$%d", n)) {
			return max
		}
		max = n
	}
}

func TestEnsureAdminAccount_GeneratesUserID(t *testing.T) {
	dbc := &fakeTenantDB{}
	h := pendingHospital()

	email, password, err := ensureAdminAccount(context.Background(), dbc, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "admin@centrale.hospitals.test" {
		t.Errorf("unexpected admin email %s", email)
	}
	if password == "" {
		t.Fatal("expected a generated password for a fresh account")
	}

	if len(dbc.execs) != 1 {
		t.Fatalf("expected exactly one INSERT, got %d", len(dbc.execs))
	}
	ins := dbc.execs[0]

	// users.id has no default in the tenant schema; an INSERT without it
	// violates NOT NULL and would fail every fresh provisioning run.
	if !strings.Contains(ins.sql, "INSERT INTO users (id,") {
		t.Errorf("admin INSERT must supply the id column:\n%s", ins.sql)
	}
	if got, want := len(ins.args), highestPlaceholder(ins.sql); got != want {
		t.Errorf("statement references $%d but %d args were bound", want, got)
	}
	id, ok := ins.args[0].(uuid.UUID)
	if !ok || id == uuid.Nil {
		t.Errorf("expected a generated uuid as the first argument, got %v", ins.args[0])
	}

	hash, ok := ins.args[3].(string)
	if !ok {
		t.Fatalf("expected password hash as fourth argument, got %T", ins.args[3])
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		t.Errorf("stored hash does not match the returned password: %v", err)
	}
}

func TestEnsureAdminAccount_ExistingAccountUntouched(t *testing.T) {
	dbc := &fakeTenantDB{adminExists: true}

	email, password, err := ensureAdminAccount(context.Background(), dbc, pendingHospital())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email == "" {
		t.Error("expected the admin email even for an existing account")
	}
	if password != "" {
		t.Error("existing account must not get new credentials")
	}
	if len(dbc.execs) != 0 {
		t.Errorf("no statements may run for an existing account, got %v", dbc.execs)
	}
}
