package server

import (
	"errors"
	"strings"
	"testing"

	qerrors "github.com/vango-dev/querysync/internal/errors"
)

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"hello", `{"type":"hello","url":"/?page=1"}`, ""},
		{"navigate", `{"type":"navigate","url":"/x"}`, ""},
		{"set", `{"type":"set","param":"page","value":"3"}`, ""},
		{"set empty value", `{"type":"set","param":"q","value":""}`, ""},
		{"clear", `{"type":"clear","param":"page"}`, ""},
		{"unmount", `{"type":"unmount","param":"page"}`, ""},
		{"invalid json", `{"type":`, "not valid JSON"},
		{"missing type", `{}`, "missing type"},
		{"unknown type", `{"type":"jump"}`, "unknown type jump"},
		{"hello without url", `{"type":"hello"}`, "hello requires url"},
		{"set without value", `{"type":"set","param":"page"}`, "set requires param and value"},
		{"clear without param", `{"type":"clear"}`, "clear requires param"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tt.data))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
			}
			if !errors.Is(err, qerrors.New("Q020")) {
				t.Errorf("error should carry Q020: %v", err)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	msg := errorMessage(badMessage("unknown param x"))
	if msg.Type != MsgError || msg.Error == nil {
		t.Fatalf("got %+v", msg)
	}
	if msg.Error.Code != "Q020" {
		t.Errorf("code: got %q, want Q020", msg.Error.Code)
	}
	if msg.Error.Message != "Invalid client message: unknown param x" {
		t.Errorf("message: got %q", msg.Error.Message)
	}

	plain := errorMessage(errors.New("boom"))
	if plain.Error.Code != "Q020" {
		t.Errorf("plain error code: got %q", plain.Error.Code)
	}
}
