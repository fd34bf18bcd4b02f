package weberr

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorStatusMapping(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		err    error
		status int
	}{
		{NotFound(cause), http.StatusNotFound},
		{NotAuthorized(cause), http.StatusUnauthorized},
		{Forbidden(cause), http.StatusForbidden},
		{BadRequest(cause), http.StatusBadRequest},
		{Conflict(cause, "taken"), http.StatusConflict},
		{TooLarge(cause), http.StatusRequestEntityTooLarge},
		{UnsupportedMedia(cause), http.StatusUnsupportedMediaType},
		{Unavailable(cause), http.StatusServiceUnavailable},
		{InternalError(cause), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		body, status, ok := Response(tt.err)
		if !ok {
			t.Fatalf("%v carries no response", tt.err)
		}
		if status != tt.status {
			t.Errorf("%v maps to %d, want %d", tt.err, status, tt.status)
		}
		if _, isResp := body.(*ErrorResponse); !isResp {
			t.Errorf("%v body is %T, want *ErrorResponse", tt.err, body)
		}
		if !errors.Is(tt.err, cause) {
			t.Errorf("%v does not unwrap to its cause", tt.err)
		}
	}

	if _, _, ok := Response(cause); ok {
		t.Fatal("a plain error must not carry a response")
	}
}

func TestConflictMessage(t *testing.T) {
	body, _, _ := Response(Conflict(errors.New("dup"), "email already in use"))
	resp, ok := body.(*ErrorResponse)
	if !ok || resp.Error != "email already in use" {
		t.Fatalf("conflict body = %+v", body)
	}
}
