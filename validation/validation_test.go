package validation

import (
	"strings"
	"testing"
	"time"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("service", "payments")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("service", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("service", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorRange(t *testing.T) {
	v := New()
	v.Range("max_concurrent", 5, 1, 100)
	if v.HasErrors() {
		t.Error("expected no error for value in range")
	}

	v2 := New()
	v2.Range("max_concurrent", 0, 1, 100)
	if !v2.HasErrors() {
		t.Error("expected error for value below range")
	}

	v3 := New()
	v3.Range("max_concurrent", 101, 1, 100)
	if !v3.HasErrors() {
		t.Error("expected error for value above range")
	}
}

func TestValidatorMinMax(t *testing.T) {
	v := New()
	v.Min("priority", 5, 0)
	v.Max("priority", 5, 10)
	if v.HasErrors() {
		t.Error("expected no errors")
	}

	v2 := New()
	v2.Min("priority", -1, 0)
	if !v2.HasErrors() {
		t.Error("expected error for value below min")
	}

	v3 := New()
	v3.Max("priority", 11, 10)
	if !v3.HasErrors() {
		t.Error("expected error for value above max")
	}
}

func TestValidatorMinDuration(t *testing.T) {
	v := New()
	v.MinDuration("cache_ttl", 30*time.Second, 0)
	if v.HasErrors() {
		t.Error("expected no error for positive duration")
	}

	v2 := New()
	v2.MinDuration("cache_ttl", -time.Second, 0)
	if !v2.HasErrors() {
		t.Error("expected error for negative duration")
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("strategy", "cache-first", []string{"cache-first", "network-first"})
	if v.HasErrors() {
		t.Error("expected no error for valid oneOf value")
	}

	v2 := New()
	v2.OneOf("strategy", "unknown", []string{"cache-first", "network-first"})
	if !v2.HasErrors() {
		t.Error("expected error for invalid oneOf value")
	}

	// Empty should be skipped
	v3 := New()
	v3.OneOf("strategy", "", []string{"cache-first"})
	if v3.HasErrors() {
		t.Error("expected no error for empty oneOf value")
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New()
	v.Custom(true, "field", "should pass")
	if v.HasErrors() {
		t.Error("expected no error for true condition")
	}

	v2 := New()
	v2.Custom(false, "field", "custom error")
	if !v2.HasErrors() {
		t.Error("expected error for false condition")
	}
	if v2.Errors()[0].Message != "custom error" {
		t.Errorf("expected 'custom error', got %q", v2.Errors()[0].Message)
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New()
	v.Required("service", "payments")
	appErr := v.Validate()
	if appErr != nil {
		t.Error("expected nil for valid input")
	}

	v2 := New()
	v2.Required("service", "")
	v2.Required("operation", "")
	appErr2 := v2.Validate()
	if appErr2 == nil {
		t.Fatal("expected error")
	}
	if appErr2.Details == nil {
		t.Fatal("expected details in error")
	}
	if !strings.Contains(appErr2.Message, "service") || !strings.Contains(appErr2.Message, "operation") {
		t.Errorf("expected both fields in message, got %q", appErr2.Message)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	result := v.Required("service", "payments").Min("priority", 5, 0).MinDuration("ttl", time.Minute, 0)
	if result != v {
		t.Error("expected chaining to return same validator")
	}
	if v.HasErrors() {
		t.Error("expected no errors for valid chained validation")
	}
}

func TestStructValidateValid(t *testing.T) {
	type rule struct {
		Operation   string        `json:"operation" validate:"required"`
		MaxRequests int           `json:"max_requests" validate:"required,gt=0"`
		Window      time.Duration `json:"window" validate:"required"`
	}

	err := Validate(rule{Operation: "login", MaxRequests: 5, Window: 15 * time.Minute})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStructValidateInvalid(t *testing.T) {
	type rule struct {
		Operation   string `json:"operation" validate:"required"`
		MaxRequests int    `json:"max_requests" validate:"required,gt=0"`
	}

	err := Validate(rule{Operation: "", MaxRequests: 5})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "operation") {
		t.Errorf("expected error to mention 'operation', got %q", err.Error())
	}
}

func TestStructValidateMaxMin(t *testing.T) {
	type input struct {
		Name string `json:"name" validate:"required,min=3,max=10"`
	}

	if err := Validate(input{Name: "payments"}); err != nil {
		t.Errorf("expected valid, got %v", err)
	}

	if err := Validate(input{Name: "ab"}); err == nil {
		t.Error("expected error for name too short")
	}
}

func TestStructValidateNumericBounds(t *testing.T) {
	type rule struct {
		MaxRequests int `json:"max_requests" validate:"required,gt=0"`
	}

	if err := Validate(rule{MaxRequests: 5}); err != nil {
		t.Errorf("expected nil for valid rule, got %v", err)
	}

	err := Validate(rule{MaxRequests: -1})
	if err == nil {
		t.Fatal("expected error for negative value")
	}
	if !strings.Contains(err.Error(), "greater than 0") {
		t.Errorf("expected a bound message, got %q", err.Error())
	}
}
