package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(DatabaseError, "insert failed", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected Unwrap to expose cause")
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestCode_ExtractsFromWrappedError(t *testing.T) {
	inner := Wrap(TransientExternalError, "fetch failed", errors.New("timeout"))
	outer := fmt.Errorf("during builder run: %w", inner)

	code, ok := Code(outer)
	if !ok || code != TransientExternalError {
		t.Fatalf("expected TransientExternalError, got %v ok=%v", code, ok)
	}
}

func TestIs_MatchesCode(t *testing.T) {
	err := New(ParseError, "bad json")
	if !Is(err, ParseError) {
		t.Fatalf("expected Is to match ParseError")
	}
	if Is(err, DatabaseError) {
		t.Fatalf("did not expect DatabaseError match")
	}
}

func TestCode_PlainErrorNotOK(t *testing.T) {
	_, ok := Code(errors.New("plain"))
	if ok {
		t.Fatalf("expected ok=false for a non-AppError")
	}
}
