package prompt

import "fmt"

// Get: 로드된 프롬프트 모음에서 이름으로 프롬프트 맵을 찾습니다.
func Get(prompts map[string]map[string]string, name string) (map[string]string, error) {
	if prompts == nil {
		return nil, fmt.Errorf("prompts not initialized")
	}
	data, ok := prompts[name]
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}
	return data, nil
}

// Field: 프롬프트 맵에서 필수 필드를 꺼냅니다.
func Field(data map[string]string, name string, key string) (string, error) {
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("prompt field missing: %s.%s", name, key)
	}
	return value, nil
}
