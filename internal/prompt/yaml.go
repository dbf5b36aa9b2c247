package prompt

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// StaticFields: 템플릿 변수를 허용하지 않는 필드 목록입니다.
var StaticFields = []string{"system", "instruction"}

// LoadYAMLMapping: 프롬프트 YAML 파일 하나를 문자열 맵으로 로드합니다.
func LoadYAMLMapping(fsys fs.FS, filePath string) (map[string]string, error) {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt yaml: %w", err)
	}

	mapping := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			mapping[key] = ""
			continue
		}
		mapping[key] = fmt.Sprint(value)
	}

	for _, field := range StaticFields {
		value, ok := mapping[field]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := ValidateStatic(filePath+"."+field, value); err != nil {
			return nil, err
		}
	}

	return mapping, nil
}

// LoadYAMLDir: 디렉터리의 *.yml, *.yaml 파일을 파일명(확장자 제외) 기준으로 로드합니다.
func LoadYAMLDir(fsys fs.FS, dir string) (map[string]map[string]string, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("glob prompt dir: %w", err)
	}
	yamlPaths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob prompt dir: %w", err)
	}
	paths = append(paths, yamlPaths...)
	slices.Sort(paths)

	prompts := make(map[string]map[string]string, len(paths))
	for _, filePath := range paths {
		name := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		if _, dup := prompts[name]; dup {
			return nil, fmt.Errorf("duplicate prompt name: %s", name)
		}
		mapping, err := LoadYAMLMapping(fsys, filePath)
		if err != nil {
			return nil, err
		}
		prompts[name] = mapping
	}
	return prompts, nil
}
