package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapPgError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrDuplicateReference},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ErrSerializationFailure},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, ErrSerializationFailure},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), ErrDuplicateReference},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapPgError(tc.in)
			if !errors.Is(got, tc.want) {
				t.Fatalf("mapPgError(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestMapPgErrorPassesThroughUnknown(t *testing.T) {
	plain := errors.New("connection reset")
	if got := mapPgError(plain); got != plain {
		t.Fatalf("mapPgError altered an unrelated error: %v", got)
	}
	otherPg := &pgconn.PgError{Code: "23503"}
	if got := mapPgError(otherPg); got != error(otherPg) {
		t.Fatalf("mapPgError altered an unmapped pg error: %v", got)
	}
}
