package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("book: %w", Conflict("doctor %d is already booked at %s", 5, "10:00"))

	if !errors.Is(err, ErrConflict) {
		t.Fatal("expected wrapped error to match ErrConflict")
	}
	if KindOf(err) != ErrConflict {
		t.Fatalf("expected conflict kind, got %v", KindOf(err))
	}
	if Code(KindOf(err)) != "conflict" {
		t.Fatalf("unexpected code %s", Code(KindOf(err)))
	}
}

func TestKindOf_InfrastructureError(t *testing.T) {
	err := errors.New("connection reset")
	if KindOf(err) != nil {
		t.Fatal("plain errors carry no kind")
	}
	if Code(KindOf(err)) != "internal_error" {
		t.Fatalf("unexpected code %s", Code(KindOf(err)))
	}
}

func TestError_MessageIsCallerFacing(t *testing.T) {
	err := NotFound("appointment %d not found", 42)
	if err.Error() != "appointment 42 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
