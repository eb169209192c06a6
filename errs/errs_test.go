package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorKind(t *testing.T) {
	err := fmt.Errorf("engine: %w", Validation("merge", "至少需要 %d 个文档", 2))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if errors.Is(err, ErrParse) || errors.Is(err, ErrUnsupported) {
		t.Fatalf("validation error must not match other kinds: %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Op != "merge" {
		t.Fatalf("errors.As failed: %+v", ve)
	}
}

func TestParseErrorCarriesStage(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("load: %w", Parse(StageXRef, cause))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause must stay reachable through Unwrap")
	}
	if got := StageOf(err); got != StageXRef {
		t.Fatalf("stage = %q, want %q", got, StageXRef)
	}
	if got := StageOf(errors.New("plain")); got != "" {
		t.Fatalf("plain error must have empty stage, got %q", got)
	}
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("extract-text")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
