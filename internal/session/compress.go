package session

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
)

// 싱글톤 encoder/decoder - goroutine-safe 재사용
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	initOnce    sync.Once
	errInit     error
)

func initZstd() error {
	initOnce.Do(func() {
		var err error
		zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			errInit = fmt.Errorf("create zstd encoder: %w", err)
			return
		}
		zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			errInit = fmt.Errorf("create zstd decoder: %w", err)
		}
	})
	return errInit
}

// encodeState: 게임 상태를 JSON 으로 직렬화한 뒤 zstd 로 압축합니다.
func encodeState(state turtlesoup.GameState) ([]byte, error) {
	if err := initZstd(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

// decodeState: encodeState 의 역변환입니다.
func decodeState(data []byte) (turtlesoup.GameState, error) {
	if err := initZstd(); err != nil {
		return turtlesoup.GameState{}, err
	}
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return turtlesoup.GameState{}, fmt.Errorf("zstd decompress: %w", err)
	}
	var state turtlesoup.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return turtlesoup.GameState{}, fmt.Errorf("unmarshal game state: %w", err)
	}
	return state, nil
}
