package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var response APIError
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body %q)", err, w.Body.String())
	}
	return response
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		status  int
		code    string
		message string
	}{
		{"BadRequest", http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request"},
		{"NotFound", http.StatusNotFound, ErrCodeConversationNotFound, "Conversation not found"},
		{"Conflict", http.StatusConflict, ErrCodeUsernameExists, "Username already taken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.status, tt.code, tt.message)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			response := decodeAPIError(t, w)
			if response.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, response.Code)
			}
			if response.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, response.Message)
			}
		})
	}
}

func TestErrorResponseWithDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponseWithDetails(c, http.StatusBadRequest, ErrCodeMissingField, "email is required", map[string]string{"field": "email"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	response := decodeAPIError(t, w)
	if response.Code != ErrCodeMissingField {
		t.Errorf("expected code %s, got %s", ErrCodeMissingField, response.Code)
	}
	if response.Details == nil {
		t.Error("expected details to be set")
	}
}

func TestShortcutFunctions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		call   func(c *gin.Context)
		status int
		code   string
	}{
		{"BadRequest", func(c *gin.Context) { BadRequest(c, ErrCodeInvalidRequest, "bad") }, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"Unauthorized", func(c *gin.Context) { Unauthorized(c, "Invalid token") }, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"Forbidden", func(c *gin.Context) { Forbidden(c, "nope") }, http.StatusForbidden, ErrCodeForbidden},
		{"NotFound", func(c *gin.Context) { NotFound(c, ErrCodeUserNotFound, "User not found") }, http.StatusNotFound, ErrCodeUserNotFound},
		{"Conflict", func(c *gin.Context) { Conflict(c, ErrCodeEmailExists, "Email already registered") }, http.StatusConflict, ErrCodeEmailExists},
		{"ValidationFailed", func(c *gin.Context) { ValidationFailed(c, "too short") }, http.StatusUnprocessableEntity, ErrCodeValidation},
		{"ServiceUnavailable", func(c *gin.Context) { ServiceUnavailable(c, "down") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"MissingField", func(c *gin.Context) { MissingField(c, "email") }, http.StatusBadRequest, ErrCodeMissingField},
		{"InvalidPayload", InvalidPayload, http.StatusBadRequest, ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tt.call(c)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			if got := decodeAPIError(t, w).Code; got != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, got)
			}
		})
	}
}

func TestInternalErrorDoesNotLeakCause(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/me", nil)

	InternalError(c, "Failed to load profile", errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("response leaked internal error: %s", w.Body.String())
	}
	if got := decodeAPIError(t, w).Message; got != "Failed to load profile" {
		t.Errorf("unexpected message %q", got)
	}
}
