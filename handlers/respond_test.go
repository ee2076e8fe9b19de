package handlers

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithJSONSmallPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()

	RespondWithJSON(rr, req, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Encoding") != "" {
		t.Error("Small payloads should not be compressed")
	}
	if rr.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Errorf("Unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(rr.Body.String()) != `{"status":"ok"}` {
		t.Errorf("Unexpected body %q", rr.Body.String())
	}
}

func TestRespondWithJSONCompression(t *testing.T) {
	payload := map[string]string{"data": strings.Repeat("糖", compressionThreshold)}

	tests := []struct {
		name       string
		encoding   string
		compressed bool
	}{
		{"gzip accepted", "gzip, deflate", true},
		{"gzip with quality", "br;q=1.0, gzip;q=0.8", true},
		{"gzip refused", "gzip;q=0", false},
		{"no header", "", false},
		{"other encodings", "br, deflate", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.encoding != "" {
				req.Header.Set("Accept-Encoding", tt.encoding)
			}
			rr := httptest.NewRecorder()

			RespondWithJSON(rr, req, http.StatusOK, payload)

			var body io.Reader = rr.Body
			if tt.compressed {
				if rr.Header().Get("Content-Encoding") != "gzip" {
					t.Fatal("Expected gzip encoding")
				}
				gz, err := gzip.NewReader(rr.Body)
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				body = gz
			} else if rr.Header().Get("Content-Encoding") != "" {
				t.Fatal("Expected uncompressed body")
			}

			var got map[string]string
			if err := json.NewDecoder(body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got["data"] != payload["data"] {
				t.Error("Body does not round-trip")
			}
		})
	}
}

func TestRespondWithJSONMarshalError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithJSON(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, make(chan int))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestRespondWithError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNotFound, "solution not found")

	body := decodeBody[ErrorResponse](t, rr)
	if body.Error != "Not Found" || body.Code != 404 || body.Message != "solution not found" {
		t.Errorf("Unexpected error body %+v", body)
	}
	if strings.Contains(rr.Body.String(), "details") {
		t.Error("details should be omitted when empty")
	}
}
