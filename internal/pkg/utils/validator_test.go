package utils

import (
	"strings"
	"testing"
)

func TestValidator_RoomName(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"three characters", "abc", true},
		{"thirty characters", strings.Repeat("r", 30), true},
		{"two characters", "ab", false},
		{"thirty one characters", strings.Repeat("r", 31), false},
		{"blank", "   ", false},
		{"multibyte", "聊天室", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			if got := v.ValidateRoomName("name", tt.value); got != tt.valid {
				t.Errorf("ValidateRoomName(%q) = %v, want %v", tt.value, got, tt.valid)
			}
			if v.HasErrors() == tt.valid {
				t.Errorf("HasErrors() = %v for valid=%v", v.HasErrors(), tt.valid)
			}
		})
	}
}

func TestValidator_DisplayName(t *testing.T) {
	v := NewValidator()

	if !v.ValidateDisplayName("username", "alice") {
		t.Error("Expected alice to be valid")
	}
	if v.ValidateDisplayName("username", "al") {
		t.Error("Expected two characters to be rejected")
	}
	if v.ValidateDisplayName("username", strings.Repeat("a", 21)) {
		t.Error("Expected 21 characters to be rejected")
	}

	if len(v.Errors()) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(v.Errors()))
	}
	if v.Errors()[0].Field != "username" {
		t.Errorf("Expected field username, got %s", v.Errors()[0].Field)
	}
	if !strings.Contains(v.Errors()[0].Message, "between 3 and 20") {
		t.Errorf("Unexpected message: %s", v.Errors()[0].Message)
	}
}

func TestValidator_RoomPassword(t *testing.T) {
	v := NewValidator()

	if !v.ValidateRoomPassword("password", "") {
		t.Error("Empty password means no password and should be valid")
	}
	if !v.ValidateRoomPassword("password", "abc") {
		t.Error("Expected three characters to be valid")
	}
	if v.ValidateRoomPassword("password", "ab") {
		t.Error("Expected two characters to be rejected")
	}
	if v.HasErrors() != true {
		t.Error("Expected a recorded error")
	}
}

func TestValidator_MessageContent(t *testing.T) {
	v := NewValidator()

	if !v.ValidateMessageContent("message", "hello", 10) {
		t.Error("Expected hello to be valid")
	}
	if v.ValidateMessageContent("message", "", 10) {
		t.Error("Expected empty message to be rejected")
	}
	if v.ValidateMessageContent("message", strings.Repeat("x", 11), 10) {
		t.Error("Expected oversized message to be rejected")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Message: "is required"},
		{Field: "password", Message: "too short"},
	}

	want := "name: is required; password: too short"
	if errs.Error() != want {
		t.Errorf("Expected %q, got %q", want, errs.Error())
	}

	if (ValidationErrors{}).Error() != "" {
		t.Error("Expected empty string for no errors")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trunc"},
		{"日本語テキスト", 3, "日本語"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	got := SanitizeString("  hi\x00there\n ")
	if got != "hithere" {
		t.Errorf("Expected %q, got %q", "hithere", got)
	}
}
