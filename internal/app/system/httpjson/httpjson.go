// Package httpjson reads and writes JSON request and response bodies.
//
// Request payloads are decoded strictly (unknown fields rejected, one body
// per request) and then checked with struct tags via go-playground/validator.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Body is the shape of every error response.
type Body struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// InvalidError describes a payload that could not be decoded or failed
// validation. Fields maps json field names to the failed rule.
type InvalidError struct {
	Message string
	Fields  map[string]string
}

func (e *InvalidError) Error() string { return e.Message }

// Write sends v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error sends an error body.
func Error(w http.ResponseWriter, status int, code, msg string) {
	Write(w, status, Body{Error: code, Message: msg})
}

// Decode reads the request body into dst and validates it. Failures are
// returned as *InvalidError.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &InvalidError{Message: "request body is required"}
		}
		return &InvalidError{Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if dec.More() {
		return &InvalidError{Message: "request body must contain a single JSON object"}
	}
	return Validate(dst)
}

// Validate checks v's validate tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &InvalidError{Message: "invalid input"}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return &InvalidError{Message: "validation failed", Fields: fields}
}

// WriteInvalid sends a 400 for an *InvalidError.
func WriteInvalid(w http.ResponseWriter, err *InvalidError) {
	Write(w, http.StatusBadRequest, Body{Error: "invalid_request", Message: err.Message, Fields: err.Fields})
}

// PathID parses the named chi URL parameter as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, &InvalidError{
			Message: fmt.Sprintf("%s is not a valid id", name),
			Fields:  map[string]string{name: "objectid"},
		}
	}
	return id, nil
}
