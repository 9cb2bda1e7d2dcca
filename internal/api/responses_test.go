package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"hello": "world"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "not found")

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "not found" || body.Detail != "" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorDetail(rec, http.StatusBadGateway, "extraction failed", "replicate: boom")

	var body ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "extraction failed" || body.Detail != "replicate: boom" {
		t.Errorf("body = %+v", body)
	}
}

func TestQueryBool(t *testing.T) {
	tests := []struct {
		url    string
		want   bool
		wantOK bool
	}{
		{"/?flag=true", true, true},
		{"/?flag=false", false, true},
		{"/?flag=1", true, true},
		{"/?flag=bogus", false, false},
		{"/", false, false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.url, nil)
		got, ok := QueryBool(req, "flag")
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("QueryBool(%q) = %v, %v; want %v, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestQueryStringList(t *testing.T) {
	tests := []struct {
		url  string
		want []string
	}{
		{"/?ids=a,b,c", []string{"a", "b", "c"}},
		{"/?ids=a,%20b%20,", []string{"a", "b"}},
		{"/?ids=", nil},
		{"/", nil},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.url, nil)
		got := QueryStringList(req, "ids")
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("QueryStringList(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"language":"en"}`))
	var body struct {
		Language string `json:"language"`
	}
	if err := DecodeJSON(req, &body); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if body.Language != "en" {
		t.Errorf("language = %q", body.Language)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader("not json"))
	if err := DecodeJSON(req, &body); err == nil {
		t.Error("expected error for malformed body")
	}
}
