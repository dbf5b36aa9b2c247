package turtlesoup

import (
	"strings"
	"testing"
)

func TestPromptBuilderLayout(t *testing.T) {
	builder, err := NewPromptBuilderFromVariant(PromptVariant{
		Name:        "test",
		Instruction: "I",
		Rules:       "R",
		Contract:    "C {labels}",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	puzzle := &Puzzle{Opening: "O", Answer: "secret", Facts: []string{"f1", " f2 ", "  "}}

	got := builder.Build(puzzle, "T", KindQuestion)
	want := "I\n\nR\n\nPUZZLE TEXT:\nO\n\n" +
		"FACTS (use ONLY these facts; do not invent anything):\n- f1\n- f2\n" +
		"\nPLAYER_QUESTION:\nT\n\nC yes, no, irrelevant"
	if got != want {
		t.Fatalf("unexpected prompt:\n%q\nwant\n%q", got, want)
	}

	guess := builder.Build(puzzle, "T", KindGuess)
	if !strings.Contains(guess, "PLAYER_GUESS:\nT") || !strings.HasSuffix(guess, "C correct, close, wrong") {
		t.Fatalf("unexpected guess prompt: %q", guess)
	}
}

func TestFactsBlockFromAnswer(t *testing.T) {
	block := FactsBlock(&Puzzle{Answer: "  the hidden story  ", Facts: []string{" ", ""}})
	if block != "FACTS (approx from answer):\n- the hidden story\n" {
		t.Fatalf("unexpected facts block: %q", block)
	}
	block = FactsBlock(&Puzzle{})
	if block != "FACTS (approx from answer):\n- (no answer provided)\n" {
		t.Fatalf("unexpected facts block: %q", block)
	}
}

func TestDefaultPromptContract(t *testing.T) {
	builder, err := NewPromptBuilder("default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	puzzle := seedPuzzle()
	prompt := builder.Build(puzzle, "Is he still alive?", KindQuestion)

	for _, want := range []string{
		"You are a referee for a 'Turtle Soup' puzzle.",
		"Do NOT reveal, quote, or describe the hidden solution.",
		"PUZZLE TEXT:\n" + puzzle.Opening,
		"- The fifth person was a corpse inside the coffin.\n",
		"PLAYER_QUESTION:\nIs he still alive?",
		"Allowed labels:\n- yes, no, irrelevant\n",
		"Example: <ANSWER>yes</ANSWER>",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, puzzle.Answer) {
		t.Fatalf("prompt must use facts, not the answer text, when facts exist")
	}
}

func TestStrictPromptUsesKindExample(t *testing.T) {
	builder, err := NewPromptBuilder("strict")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := builder.Build(seedPuzzle(), "a corpse", KindGuess)
	if !strings.Contains(prompt, "Example: <ANSWER>correct</ANSWER>") {
		t.Fatalf("expected guess example in strict contract:\n%s", prompt)
	}
	if builder.Variant() != "strict" {
		t.Fatalf("unexpected variant name: %s", builder.Variant())
	}
}

func TestNewPromptBuilderUnknownVariant(t *testing.T) {
	if _, err := NewPromptBuilder("nope"); err == nil {
		t.Fatalf("expected unknown variant error")
	}
}

func TestVariantRequiresLabelsPlaceholder(t *testing.T) {
	data := map[string]string{"instruction": "i", "rules": "r", "contract": "no placeholder"}
	if _, err := variantFromMapping("bad", data); err == nil {
		t.Fatalf("expected error for contract without {labels}")
	}
	delete(data, "rules")
	if _, err := variantFromMapping("bad", data); err == nil {
		t.Fatalf("expected error for missing rules")
	}
}

func TestLoadPromptVariants(t *testing.T) {
	variants, err := LoadPromptVariants()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := PromptVariantNames(variants)
	if len(names) < 2 || names[0] != "default" {
		t.Fatalf("unexpected variant names: %v", names)
	}

	required := []string{
		"only on facts",
		"reveal",
		"do not output any other visible text outside the <answer> tags",
	}
	for _, name := range names {
		v := variants[name]
		text := strings.ToLower(v.Instruction + "\n" + v.Rules + "\n" + v.Contract)
		for _, phrase := range required {
			if !strings.Contains(text, phrase) {
				t.Fatalf("variant %q missing %q", name, phrase)
			}
		}
	}
}
