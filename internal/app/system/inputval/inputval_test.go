package inputval

import (
	"strings"
	"testing"
)

func TestIsValidEntryName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain name", "report.pdf", true},
		{"spaces inside", "Q1 Budget.xlsx", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"forward slash", "a/b", false},
		{"backslash", `a\b`, false},
		{"over 255 chars", strings.Repeat("x", 256), false},
		{"exactly 255 chars", strings.Repeat("x", 255), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEntryName(tt.in); got != tt.want {
				t.Errorf("IsValidEntryName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type input struct {
		Name   string `validate:"required,entryname" label:"Name"`
		Access string `validate:"omitempty,oneof=read write admin" label:"Access level"`
	}

	t.Run("valid input has no errors", func(t *testing.T) {
		res := Validate(&input{Name: "notes.txt", Access: "read"})
		if res.HasErrors() {
			t.Errorf("unexpected errors: %s", res.All())
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		res := Validate(&input{})
		if !res.HasErrors() {
			t.Fatal("expected a validation error")
		}
		if got := res.First(); got != "Name is required" {
			t.Errorf("First() = %q", got)
		}
	})

	t.Run("entryname rule rejects path separators", func(t *testing.T) {
		res := Validate(&input{Name: "../etc/passwd"})
		if !res.HasErrors() {
			t.Fatal("expected a validation error")
		}
		if !strings.Contains(res.First(), "path separators") {
			t.Errorf("First() = %q, want the entryname message", res.First())
		}
	})

	t.Run("oneof rule names the choices", func(t *testing.T) {
		res := Validate(&input{Name: "ok.txt", Access: "owner"})
		if !res.HasErrors() {
			t.Fatal("expected a validation error")
		}
		if !strings.Contains(res.First(), "Access level must be one of") {
			t.Errorf("First() = %q", res.First())
		}
	})
}
