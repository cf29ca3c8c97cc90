package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := New(CodeUsernameTaken, "username already exists")
	if !errors.Is(err, New(CodeUsernameTaken, "different message")) {
		t.Fatal("expected errors with the same code to match")
	}
	if errors.Is(err, New(CodeUserNotFound, "username already exists")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(CodeUnknown, "persist message", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found via errors.Is")
	}
	if err.Error() != "persist message" {
		t.Fatalf("expected message %q, got %q", "persist message", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUsernameTaken, http.StatusBadRequest},
		{CodeFriendshipExists, http.StatusBadRequest},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeUserNotFound, http.StatusNotFound},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Fatalf("code %s: expected status %d, got %d", tt.code, tt.want, got)
		}
	}
}
