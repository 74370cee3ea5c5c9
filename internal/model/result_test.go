package model

import (
	"encoding/json"
	"testing"

	"github.com/jerometseng/requestlog/internal/docpath"
)

func TestResult_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"ok with data", Ok(map[string]int{"n": 1}), `{"code":200,"msg":"success","data":{"n":1}}`},
		{"ok without data", Ok[any](nil), `{"code":200,"msg":"success"}`},
		{"fail", Fail("boom"), `{"code":500,"msg":"boom"}`},
		{"fail default message", Fail(""), `{"code":500,"msg":"failure"}`},
		{"fail with code", FailWithCode(404, "Not Found"), `{"code":404,"msg":"Not Found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestResult_IsOK(t *testing.T) {
	if !Ok("x").IsOK() {
		t.Error("Ok should report IsOK")
	}
	if Fail("x").IsOK() {
		t.Error("Fail should not report IsOK")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Docs.Path != "/doc.html" {
		t.Errorf("expected docs path /doc.html, got %s", cfg.Docs.Path)
	}
	if len(cfg.Docs.Markers) != len(docpath.DefaultMarkers) {
		t.Fatalf("expected %d markers, got %d", len(docpath.DefaultMarkers), len(cfg.Docs.Markers))
	}

	cfg.Docs.Markers[0] = "changed"
	if docpath.DefaultMarkers[0] != "swagger-resources" {
		t.Error("DefaultConfig must not alias docpath.DefaultMarkers")
	}
}
