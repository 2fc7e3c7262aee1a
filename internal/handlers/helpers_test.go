package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

const testToken = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantMessage string) {
	t.Helper()
	if rr.Code != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, rr.Code, rr.Body.String())
	}
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != wantMessage {
		t.Fatalf("expected error %q, got %q", wantMessage, resp.Error)
	}
}
