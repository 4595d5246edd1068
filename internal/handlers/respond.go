package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	applog "idlely/internal/log"
)

const maxRequestBody = 1 << 20

type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// functionResponse is the envelope returned by the /functions/v1 endpoints.
type functionResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *functionError `json:"error,omitempty"`
}

type functionError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Message: message})
}

func writeFunctionSuccess(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusOK, functionResponse{Success: true, Data: data})
}

func writeFunctionError(w http.ResponseWriter, r *http.Request, status int, message string, fields map[string]string) {
	writeJSON(w, r, status, functionResponse{Error: &functionError{Message: message, Fields: fields}})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

var (
	requestValidatorOnce sync.Once
	requestValidator     *validator.Validate
)

func requestValidatorInstance() *validator.Validate {
	requestValidatorOnce.Do(func() {
		requestValidator = validator.New(validator.WithRequiredStructEnabled())
		requestValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return requestValidator
}

// validateRequest checks a decoded body and maps failures to field messages.
func validateRequest(body any) map[string]string {
	err := requestValidatorInstance().Struct(body)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "email":
			fields[fe.Field()] = "must be a valid email address"
		case "min":
			fields[fe.Field()] = "must be at least " + fe.Param() + " characters long"
		case "max":
			fields[fe.Field()] = "must be at most " + fe.Param() + " characters long"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return fields
}
