package shared

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrUnknownField 는 DecodeStrict 가 모르는 키를 만났을 때 감싸는 오류다.
var ErrUnknownField = errors.New("unknown field")

// DecodeStrict 는 gRPC Struct 에서 꺼낸 map 을 json 태그 기준으로 result 에 옮긴다.
// 모르는 키가 하나라도 있으면 이름을 모아 오류로 돌려준다.
func DecodeStrict(input map[string]any, result any) error {
	unused, err := decode(input, result)
	if err != nil {
		return err
	}
	if len(unused) > 0 {
		slices.Sort(unused)
		return fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unused, ", "))
	}
	return nil
}

// decode 는 쓰이지 않은 키 이름을 함께 돌려준다.
// 숫자는 모두 float64 로 들어오므로 약한 타입 변환을 켠다.
func decode(input map[string]any, result any) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		Metadata:         &md,
		DecodeHook:       integralFloatHook,
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return md.Unused, nil
}

// integralFloatHook 은 2.5 같은 값이 정수 필드로 잘려 들어가지 않게 막는다.
func integralFloatHook(from reflect.Kind, to reflect.Kind, data any) (any, error) {
	if from != reflect.Float64 {
		return data, nil
	}
	switch to {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := data.(float64)
		if ok && f != math.Trunc(f) {
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
	}
	return data, nil
}
