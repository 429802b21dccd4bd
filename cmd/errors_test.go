package cmd

import (
	"errors"
	"testing"

	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
)

func TestInvalidURLError(t *testing.T) {
	err := &InvalidURLError{URL: "ftp://x", Err: apperrors.ErrUnsupportedScheme}
	if !errors.Is(err, apperrors.ErrUnsupportedScheme) {
		t.Fatal("expected InvalidURLError to unwrap to its cause")
	}
	want := `invalid URL "ftp://x": ` + apperrors.ErrUnsupportedScheme.Error()
	if err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
}

func TestAuditFailedError(t *testing.T) {
	err := &AuditFailedError{URL: "https://example.com", Message: "timeout"}
	if want := "audit of https://example.com failed: timeout"; err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
	err = &AuditFailedError{Message: "timeout"}
	if want := "audit failed: timeout"; err.Error() != want {
		t.Fatalf("expected %s, got %s", want, err.Error())
	}
}
