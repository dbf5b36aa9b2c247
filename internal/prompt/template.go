package prompt

import (
	"fmt"
	"strings"
)

// FormatTemplate: {key} 자리를 values로 치환합니다. {{ 와 }} 는 리터럴 중괄호입니다.
func FormatTemplate(template string, values map[string]string) (string, error) {
	var builder strings.Builder
	builder.Grow(len(template))

	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				builder.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("invalid template: missing '}'")
			}
			key := template[i+1 : i+1+end]
			value, ok := values[key]
			if !ok {
				return "", fmt.Errorf("missing template value for %q", key)
			}
			builder.WriteString(value)
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				builder.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("invalid template: unexpected '}'")
		default:
			builder.WriteByte(template[i])
			i++
		}
	}

	return builder.String(), nil
}

// Placeholders: 템플릿이 참조하는 키 목록을 등장 순서대로 반환합니다.
func Placeholders(template string) ([]string, error) {
	var keys []string
	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("invalid template: missing '}'")
			}
			keys = append(keys, template[i+1:i+1+end])
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				i += 2
				continue
			}
			return nil, fmt.Errorf("invalid template: unexpected '}'")
		default:
			i++
		}
	}
	return keys, nil
}

// ValidateStatic: 고정 텍스트여야 하는 필드에 템플릿 변수가 없는지 검사합니다.
func ValidateStatic(name string, text string) error {
	keys, err := Placeholders(text)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(keys) > 0 {
		return fmt.Errorf("%s: must not contain template variables %q", name, keys[0])
	}
	return nil
}
