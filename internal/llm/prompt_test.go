package llm

import (
	"errors"
	"testing"
)

func TestCheckResponse(t *testing.T) {
	if err := CheckResponse("Blood glucose is elevated."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckResponse("   "); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if err := CheckResponse("As a large language model I cannot help."); !errors.Is(err, ErrRefusal) {
		t.Fatalf("expected ErrRefusal, got %v", err)
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"plain text":                     "plain text",
		"```\nHallo Welt\n```":           "Hallo Welt",
		"```text\nZeile 1\nZeile 2```": "Zeile 1\nZeile 2",
		"```":                            "",
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Errorf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
