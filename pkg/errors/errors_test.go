package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "field is read-only in the current state", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing sku")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing sku" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "sku"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "upsert price item")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndIsCode(t *testing.T) {
	err := fmt.Errorf("row 3: %w", New(CodeStateConflict, "price is read-only"))
	if got := As(err); got == nil || got.Code() != CodeStateConflict {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeStateConflict) {
		t.Fatalf("expected IsCode to match wrapped typed error")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("IsCode matched the wrong code")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeDependency, stdErrors.New("disk"), "write"))
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "load price items")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load price items: connection refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeNotFound, "supplier %s not found", "acme").Error(); got != "NOT_FOUND: supplier acme not found" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("approve: %w", New(CodeStateConflict, "price is read-only"))
	if !stdErrors.Is(err, New(CodeStateConflict, "")) {
		t.Fatal("expected errors.Is to match on code")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatal("expected different codes not to match")
	}
}

func TestStatusOfAndRetryable(t *testing.T) {
	if got := StatusOf(New(CodeStateConflict, "locked")); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", got)
	}
	if got := StatusOf(stdErrors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", got)
	}
	if !IsRetryable(Wrap(CodeDependency, stdErrors.New("timeout"), "db")) {
		t.Fatal("expected dependency errors to be retryable")
	}
	if IsRetryable(New(CodeValidation, "bad")) || IsRetryable(stdErrors.New("plain")) {
		t.Fatal("expected validation and untyped errors not to be retryable")
	}
}
