package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

// The verification endpoints share the auth rate-limit tier (5 requests per
// 15 minutes per client), so these tests are deliberately frugal with calls.

func TestRequestCodeValidation(t *testing.T) {
	requireServer(t)

	payload := map[string]any{
		"subject_id": time.Now().UnixNano(),
		"email":      "not-an-email",
	}

	status, body := doJSON(t, http.MethodPost, "/api/v1/verification/email/request", payload, "")

	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", status, body)
	}
	errEnv := decodeError(t, body)
	if _, ok := errEnv.Error["email"]; !ok {
		t.Fatalf("expected email field error, got %v", errEnv.Error)
	}
}

func TestRequestCodeThenWrongCode(t *testing.T) {
	requireServer(t)

	subjectID := time.Now().UnixNano()
	email := fmt.Sprintf("e2e-%d@example.com", subjectID)

	status, body := doJSON(t, http.MethodPost, "/api/v1/verification/email/request", map[string]any{
		"subject_id": subjectID,
		"email":      email,
	}, "")
	if status != http.StatusOK {
		errEnv := decodeError(t, body)
		t.Fatalf("request code failed: status=%d message=%q", status, errEnv.Message)
	}
	env := decodeSuccess(t, body)
	if env.Message == "" {
		t.Fatalf("expected non-empty message")
	}

	status, body = doJSON(t, http.MethodPost, "/api/v1/verification/email/verify", map[string]any{
		"subject_id": subjectID,
		"email":      email,
		"code":       "000001",
	}, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong code, got %d: %s", status, body)
	}
	errEnv := decodeError(t, body)
	if _, ok := errEnv.Error["attempts_left"]; !ok {
		t.Fatalf("expected attempts_left field, got %v", errEnv.Error)
	}
}

func TestVerifyWithoutChallenge(t *testing.T) {
	requireServer(t)

	subjectID := time.Now().UnixNano()

	status, body := doJSON(t, http.MethodPost, "/api/v1/verification/email/verify", map[string]any{
		"subject_id": subjectID,
		"email":      fmt.Sprintf("e2e-%d@example.com", subjectID),
		"code":       "123456",
	}, "")

	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", status, body)
	}
	errEnv := decodeError(t, body)
	if errEnv.Message == "" {
		t.Fatalf("expected generic rejection message")
	}
	if len(errEnv.Error) != 0 {
		t.Fatalf("missing challenge must not leak details, got %v", errEnv.Error)
	}
}
