package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeDuplicateCode, "token code already exists")
	wrapped := fmt.Errorf("create token: %w", err)

	if !stderrors.Is(wrapped, New(CodeDuplicateCode, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(wrapped, New(CodeNotFound, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "save card", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "save card" {
		t.Fatalf("expected message, got %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("issue: %w", New(CodeRedemptionFailed, "token unavailable"))); got != CodeRedemptionFailed {
		t.Fatalf("expected %s, got %s", CodeRedemptionFailed, got)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestPublicMessageHidesUnknown(t *testing.T) {
	if got := PublicMessage(stderrors.New("sql: connection refused")); got != "internal error" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := PublicMessage(New(CodeInvalidPhone, "phone must contain digits only")); got != "phone must contain digits only" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInstitution: http.StatusBadRequest,
		CodeDuplicateCode:      http.StatusConflict,
		CodeRedemptionFailed:   http.StatusConflict,
		CodeNotFound:           http.StatusNotFound,
		CodeUnauthenticated:    http.StatusUnauthorized,
		CodeUnknown:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}
