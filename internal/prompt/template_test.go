package prompt

import "testing"

func TestFormatTemplate(t *testing.T) {
	output, err := FormatTemplate("Allowed {labels} {{x}}", map[string]string{"labels": "yes, no"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "Allowed yes, no {x}" {
		t.Fatalf("unexpected output: %s", output)
	}
}

func TestFormatTemplateErrors(t *testing.T) {
	if _, err := FormatTemplate("Hello {name}", map[string]string{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := FormatTemplate("Hello {name", map[string]string{"name": "A"}); err == nil {
		t.Fatalf("expected syntax error")
	}
	if _, err := FormatTemplate("Hello }", nil); err == nil {
		t.Fatalf("expected stray brace error")
	}
}

func TestPlaceholders(t *testing.T) {
	keys, err := Placeholders("{a} and {{b}} and {c}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestValidateStatic(t *testing.T) {
	if err := ValidateStatic("instruction", "Hello {name}"); err == nil {
		t.Fatalf("expected error")
	}
	if err := ValidateStatic("instruction", "Hello {{name}}!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
