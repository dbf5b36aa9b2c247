package turtlesoup

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/park285/turtle-soup-judge/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

const (
	factsHeader         = "FACTS (use ONLY these facts; do not invent anything):\n"
	factsFromAnswer     = "FACTS (approx from answer):\n"
	noAnswerPlaceholder = "(no answer provided)"
)

// PromptVariant: 판정 프롬프트의 교체 가능한 문구 묶음입니다.
type PromptVariant struct {
	Name        string
	Instruction string
	Rules       string
	// Contract 는 {labels}, {example} 자리표시자를 가진 최종 출력 규약 템플릿이다.
	Contract string
}

// LoadPromptVariants: 내장된 prompts/*.yml 을 읽어 변형 이름별로 반환합니다.
func LoadPromptVariants() (map[string]PromptVariant, error) {
	loaded, err := prompt.LoadYAMLDir(promptsFS, "prompts")
	if err != nil {
		return nil, fmt.Errorf("load judge prompts: %w", err)
	}

	variants := make(map[string]PromptVariant, len(loaded))
	for name, data := range loaded {
		variant, err := variantFromMapping(name, data)
		if err != nil {
			return nil, err
		}
		variants[name] = variant
	}
	return variants, nil
}

// PromptVariantNames: 사용 가능한 변형 이름을 정렬해 반환합니다.
func PromptVariantNames(variants map[string]PromptVariant) []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func variantFromMapping(name string, data map[string]string) (PromptVariant, error) {
	instruction, err := prompt.Field(data, name, "instruction")
	if err != nil {
		return PromptVariant{}, err
	}
	rules, err := prompt.Field(data, name, "rules")
	if err != nil {
		return PromptVariant{}, err
	}
	contract, err := prompt.Field(data, name, "contract")
	if err != nil {
		return PromptVariant{}, err
	}
	keys, err := prompt.Placeholders(contract)
	if err != nil {
		return PromptVariant{}, fmt.Errorf("%s.contract: %w", name, err)
	}
	if !slices.Contains(keys, "labels") {
		return PromptVariant{}, fmt.Errorf("%s.contract: {labels} placeholder required", name)
	}
	return PromptVariant{
		Name:        name,
		Instruction: strings.TrimSpace(instruction),
		Rules:       strings.TrimSpace(rules),
		Contract:    strings.TrimSpace(contract),
	}, nil
}

// PromptBuilder: 퍼즐, 플레이어 입력, 입력 종류로 모델 요청 문자열을 조립합니다.
type PromptBuilder struct {
	variant  PromptVariant
	contract map[Kind]string
}

// NewPromptBuilder: 내장 변형 중 name 을 골라 빌더를 만듭니다.
func NewPromptBuilder(name string) (*PromptBuilder, error) {
	variants, err := LoadPromptVariants()
	if err != nil {
		return nil, err
	}
	variant, ok := variants[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt variant %q (available: %s)", name, strings.Join(PromptVariantNames(variants), ", "))
	}
	return NewPromptBuilderFromVariant(variant)
}

// NewPromptBuilderFromVariant: 주어진 변형으로 빌더를 만듭니다. 규약 템플릿은 여기서 미리 채웁니다.
func NewPromptBuilderFromVariant(variant PromptVariant) (*PromptBuilder, error) {
	contract := make(map[Kind]string, 2)
	for _, kind := range []Kind{KindQuestion, KindGuess} {
		labels := kind.Verdicts()
		names := make([]string, len(labels))
		for i, label := range labels {
			names[i] = string(label)
		}
		formatted, err := prompt.FormatTemplate(variant.Contract, map[string]string{
			"labels":  strings.Join(names, ", "),
			"example": names[0],
		})
		if err != nil {
			return nil, fmt.Errorf("format %s.contract: %w", variant.Name, err)
		}
		contract[kind] = formatted
	}
	return &PromptBuilder{variant: variant, contract: contract}, nil
}

// Variant: 빌더가 사용하는 변형 이름입니다.
func (b *PromptBuilder) Variant() string {
	return b.variant.Name
}

// Build: 요청 문자열을 만듭니다. 부수 효과가 없고 puzzle 이 nil 이 아니면 실패하지 않습니다.
func (b *PromptBuilder) Build(puzzle *Puzzle, text string, kind Kind) string {
	var sb strings.Builder
	sb.WriteString(b.variant.Instruction)
	sb.WriteString("\n\n")
	sb.WriteString(b.variant.Rules)
	sb.WriteString("\n\n")
	sb.WriteString("PUZZLE TEXT:\n")
	sb.WriteString(puzzle.Opening)
	sb.WriteString("\n\n")
	sb.WriteString(FactsBlock(puzzle))
	sb.WriteString("\n")
	sb.WriteString("PLAYER_")
	sb.WriteString(kind.Role())
	sb.WriteString(":\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(b.contract[kind])
	return sb.String()
}

// FactsBlock: 사실 목록 블록을 만듭니다. 쓸 수 있는 사실이 없으면 정답에서 한 줄을 합성합니다.
func FactsBlock(puzzle *Puzzle) string {
	facts := puzzle.UsableFacts()
	var sb strings.Builder
	if len(facts) == 0 {
		answer := strings.TrimSpace(puzzle.Answer)
		if answer == "" {
			answer = noAnswerPlaceholder
		}
		sb.WriteString(factsFromAnswer)
		sb.WriteString("- ")
		sb.WriteString(answer)
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(factsHeader)
	for _, fact := range facts {
		sb.WriteString("- ")
		sb.WriteString(fact)
		sb.WriteString("\n")
	}
	return sb.String()
}
