package prompt

import (
	"testing"
	"testing/fstest"
)

func TestLoadYAMLMapping(t *testing.T) {
	fsys := fstest.MapFS{
		"sample.yml": {Data: []byte("instruction: hello\nrules: \"{yes, no}\"\ncount: 3\n")},
	}

	mapping, err := LoadYAMLMapping(fsys, "sample.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping["instruction"] != "hello" {
		t.Fatalf("unexpected instruction: %s", mapping["instruction"])
	}
	if mapping["rules"] != "{yes, no}" {
		t.Fatalf("rules must stay verbatim: %s", mapping["rules"])
	}
	if mapping["count"] != "3" {
		t.Fatalf("unexpected count: %s", mapping["count"])
	}
}

func TestLoadYAMLMappingRejectsTemplatedInstruction(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.yml": {Data: []byte("instruction: \"hello {name}\"\n")},
	}
	if _, err := LoadYAMLMapping(fsys, "bad.yml"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadYAMLDir(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/a.yml":  {Data: []byte("instruction: alpha\n")},
		"prompts/b.yaml": {Data: []byte("instruction: beta\n")},
	}

	prompts, err := LoadYAMLDir(fsys, "prompts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(prompts))
	}
	data, err := Get(prompts, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err := Field(data, "a", "instruction")
	if err != nil || value != "alpha" {
		t.Fatalf("unexpected field: %q %v", value, err)
	}
	if _, err := Field(data, "a", "rules"); err == nil {
		t.Fatalf("expected missing field error")
	}
}

func TestLoadYAMLDirDuplicateName(t *testing.T) {
	fsys := fstest.MapFS{
		"prompts/a.yml":  {Data: []byte("instruction: alpha\n")},
		"prompts/a.yaml": {Data: []byte("instruction: beta\n")},
	}
	if _, err := LoadYAMLDir(fsys, "prompts"); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
