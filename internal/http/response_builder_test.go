package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		BodyHTML("<p>ok</p>").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerLedgerChanged("2024-03").
		TriggerSuccessNotification("Transacción registrada").
		Redirect("/transacciones/").
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if string(triggers["ledger:changed"]) != `{"mes_anio":"2024-03"}` {
		t.Errorf("ledger:changed = %s", triggers["ledger:changed"])
	}
	if !strings.Contains(string(triggers["show-notification"]), `"type":"success"`) {
		t.Errorf("show-notification = %s", triggers["show-notification"])
	}
	if w.Header().Get("HX-Redirect") != "/transacciones/" {
		t.Errorf("HX-Redirect = %q", w.Header().Get("HX-Redirect"))
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *HTMXResponseBuilder
		wantCode int
	}{
		{"bad request", BadRequestError("<b>x</b>"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("<b>x</b>"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("<b>x</b>"), http.StatusInternalServerError},
		{"not found", NotFoundError("<b>x</b>"), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Body.String() != `<div class="error">&lt;b&gt;x&lt;/b&gt;</div>` {
				t.Errorf("body not escaped: %q", w.Body.String())
			}
		})
	}

	w := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "POST" {
		t.Errorf("405 response = %d, Allow %q", w.Code, w.Header().Get("Allow"))
	}
}
