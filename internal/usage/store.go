package usage

import (
	"context"
	"time"
)

// Ledger 는 판정 사용량을 일자별로 누적하는 쓰기 경계다. Recorder 와 배치 플러셔가 쓴다.
type Ledger interface {
	// usageDate 가 zero 면 서버 로컬 기준 오늘에 더한다.
	AddUsage(ctx context.Context, delta Delta, usageDate time.Time) error
}

// Reader 는 사용량 API 가 쓰는 조회 경계다.
type Reader interface {
	GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error)
	GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error)
}

var (
	_ Ledger = (*Repository)(nil)
	_ Reader = (*Repository)(nil)
)
