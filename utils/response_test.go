package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"rms-be/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    any           `json:"data"`
	Errors  []ErrorDetail `json:"errors"`
}

func serve(t *testing.T, handler gin.HandlerFunc) (int, envelope) {
	t.Helper()
	r := gin.New()
	r.GET("/", handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return w.Code, body
}

func TestRespondErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", models.NewValidationError("title", "too short"), http.StatusBadRequest, "too short"},
		{"invalid input", fmt.Errorf("parse: %w", models.ErrInvalidInput), http.StatusBadRequest, "Invalid request"},
		{"unauthorized", fmt.Errorf("token: %w", models.ErrUnauthorized), http.StatusUnauthorized, "Not authorized"},
		{"bad credentials", models.ErrBadCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"forbidden", fmt.Errorf("delete: %w", models.ErrForbidden), http.StatusForbidden, "Access denied"},
		{"not found", fmt.Errorf("find: %w", models.ErrNotFound), http.StatusNotFound, "Resource not found"},
		{"email taken", fmt.Errorf("signup: %w", models.ErrEmailTaken), http.StatusConflict, "User already exists with this email"},
		{"conflict", fmt.Errorf("update: %w", models.ErrConflict), http.StatusConflict, "Resource was modified concurrently, please retry"},
		{"dependency", fmt.Errorf("%w: smtp down", models.ErrDependency), http.StatusServiceUnavailable, "Service temporarily unavailable"},
		{"unknown", errors.New("mongo: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, func(c *gin.Context) { RespondError(c, tt.err) })
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if body.Success || body.Message != tt.message {
				t.Errorf("body = %+v, want failure %q", body, tt.message)
			}
		})
	}
}

func TestRespondErrorListsValidationField(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) {
		RespondError(c, models.NewValidationError("location.lat", "Invalid latitude"))
	})
	if len(body.Errors) != 1 || body.Errors[0] != (ErrorDetail{Field: "location.lat", Message: "Invalid latitude"}) {
		t.Errorf("Errors = %+v", body.Errors)
	}
}

func TestRespond(t *testing.T) {
	status, body := serve(t, func(c *gin.Context) {
		Respond(c, http.StatusCreated, "Issue reported successfully", gin.H{"issueId": "RMS10001"})
	})
	if status != http.StatusCreated || !body.Success || body.Message != "Issue reported successfully" {
		t.Errorf("Respond() = %d %+v", status, body)
	}
	data, ok := body.Data.(map[string]any)
	if !ok || data["issueId"] != "RMS10001" {
		t.Errorf("Data = %v", body.Data)
	}
}
