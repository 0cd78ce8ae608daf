package types

import (
	"database/sql"
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "missing", err: &MissingFieldsError{Fields: []string{"ph", "tds"}}, want: "missing fields: ph, tds"},
		{name: "validation", err: &ValidationError{Field: "ph", Value: "15", Reason: "must be within [0, 14]"}, want: `invalid ph "15": must be within [0, 14]`},
		{name: "write", err: &WriteError{Err: errors.New("disk full")}, want: "write reading: disk full"},
		{name: "read", err: &ReadError{Op: "query recent", Err: errors.New("locked")}, want: "query recent: locked"},
		{name: "unavailable", err: &StorageUnavailableError{Err: &ReadError{Op: "query recent", Err: errors.New("locked")}}, want: "storage unavailable: query recent: locked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestErrorChains(t *testing.T) {
	cause := sql.ErrConnDone
	err := &StorageUnavailableError{Err: &ReadError{Op: "query recent", Err: cause}}

	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatal("errors.As(*ReadError) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(cause) = false")
	}
	if !errors.Is(&WriteError{Err: cause}, cause) {
		t.Error("WriteError does not unwrap to cause")
	}
}
