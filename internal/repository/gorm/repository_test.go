package gormrepository

import (
	"context"
	"testing"

	"degenecho/internal/repository"
)

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		raw     string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{" 42 ", 42, false},
		{"18446744073709551615", ^uint64(0), false},
		{"18446744073709551616", 0, true},
		{"-1", 0, true},
	}
	for _, tc := range cases {
		got, err := parseNumeric(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseNumeric(%q) err=%v wantErr=%v", tc.raw, err, tc.wantErr)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("parseNumeric(%q)=%d want %d", tc.raw, got, tc.want)
		}
	}
}

func TestNilStoreTransactionFails(t *testing.T) {
	var s *Store
	called := false
	err := s.InTx(context.Background(), func(repository.Repository) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}
