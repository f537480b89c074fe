package httpjson_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/zozokid/internal/app/system/httpjson"
)

type payload struct {
	Name string `json:"name" validate:"required,max=10"`
	Age  int    `json:"age" validate:"gte=0,lte=18"`
}

func decode(body string) (payload, error) {
	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := httpjson.Decode(httptest.NewRecorder(), req, &p)
	return p, err
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantFields map[string]string
	}{
		{"valid", `{"name":"Ada","age":7}`, false, nil},
		{"empty body", ``, true, nil},
		{"malformed", `{"name":`, true, nil},
		{"unknown field", `{"name":"Ada","color":"red"}`, true, nil},
		{"two objects", `{"name":"Ada"}{"name":"Bo"}`, true, nil},
		{"missing name", `{"age":7}`, true, map[string]string{"name": "required"}},
		{"too old", `{"name":"Ada","age":40}`, true, map[string]string{"age": "lte"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := decode(tc.body)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Name != "Ada" || p.Age != 7 {
					t.Errorf("decoded %+v", p)
				}
				return
			}
			var ie *httpjson.InvalidError
			if !errors.As(err, &ie) {
				t.Fatalf("err = %v, want *InvalidError", err)
			}
			for k, v := range tc.wantFields {
				if ie.Fields[k] != v {
					t.Errorf("Fields[%q] = %q, want %q", k, ie.Fields[k], v)
				}
			}
		})
	}
}

func TestWriteInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	httpjson.WriteInvalid(rec, &httpjson.InvalidError{Message: "validation failed", Fields: map[string]string{"name": "required"}})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	var body httpjson.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid_request" || body.Fields["name"] != "required" {
		t.Errorf("body = %+v", body)
	}
}
