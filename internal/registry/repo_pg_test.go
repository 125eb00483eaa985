package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapUniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"hospitals_slug_key", ErrSlugTaken},
		{"hospitals_domain_key", ErrDomainTaken},
		{"hospitals_db_name_key", ErrDBNameTaken},
	}
	for _, tt := range tests {
		in := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})
		if got := mapUniqueViolation(in); !errors.Is(got, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.constraint, tt.want, got)
		}
	}
}

func TestMapUniqueViolation_PassesOtherErrorsThrough(t *testing.T) {
	notNull := &pgconn.PgError{Code: "23502", ColumnName: "name"}
	if got := mapUniqueViolation(notNull); !errors.Is(got, notNull) {
		t.Errorf("non-unique violations must pass through, got %v", got)
	}

	plain := errors.New("connection reset")
	if got := mapUniqueViolation(plain); !errors.Is(got, plain) {
		t.Errorf("plain errors must pass through, got %v", got)
	}
}
