package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// parseAPIKeys 는 GOOGLE_API_KEYS(여러 개)를 먼저, 없으면 GOOGLE_API_KEY 하나를 읽는다.
func parseAPIKeys() []string {
	if keys := splitKeys(os.Getenv("GOOGLE_API_KEYS")); len(keys) > 0 {
		return keys
	}
	if key := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")); key != "" {
		return []string{key}
	}
	return nil
}

// splitKeys 는 쉼표나 공백으로 구분된 키 목록을 나눈다.
func splitKeys(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// envOr 는 key 가 비었거나 parse 가 실패하면 def 를 돌려준다.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := parse(raw)
	if err != nil {
		return def
	}
	return value
}

func getEnvString(key string, def string) string {
	return envOr(key, def, func(raw string) (string, error) { return raw, nil })
}

func getEnvInt(key string, def int) int {
	return envOr(key, def, strconv.Atoi)
}

// getEnvNonNegativeInt 는 음수를 0 으로 올린다.
func getEnvNonNegativeInt(key string, def int) int {
	return max(0, getEnvInt(key, def))
}

func getEnvFloat(key string, def float64) float64 {
	return envOr(key, def, func(raw string) (float64, error) { return strconv.ParseFloat(raw, 64) })
}

var errNotAFlag = errors.New("not a boolean flag")

// getEnvBool 은 true/false, 1/0, yes/no, y/n, on/off 를 받는다. 그 밖의 값은 def.
func getEnvBool(key string, def bool) bool {
	return envOr(key, def, parseFlag)
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	default:
		return false, errNotAFlag
	}
}

// maskSecret 은 로그용으로 앞뒤 두 글자만 남긴다.
func maskSecret(value string) string {
	switch {
	case value == "":
		return "<missing>"
	case len(value) <= 4:
		return strings.Repeat("*", len(value))
	default:
		return value[:2] + "***" + value[len(value)-2:]
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
