package usage

import "time"

// JudgmentUsage 는 일자별 판정 사용량 집계를 저장하는 DB 모델이다.
type JudgmentUsage struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	UsageDate       time.Time `gorm:"column:usage_date;type:date;not null;uniqueIndex:idx_judgment_usage_usage_date"`
	InputTokens     int64     `gorm:"column:input_tokens;not null;default:0"`
	OutputTokens    int64     `gorm:"column:output_tokens;not null;default:0"`
	ReasoningTokens int64     `gorm:"column:reasoning_tokens;not null;default:0"`
	ModelCalls      int64     `gorm:"column:model_calls;not null;default:0"`
	Fallbacks       int64     `gorm:"column:fallbacks;not null;default:0"`
	Version         int64     `gorm:"column:version;not null;default:0"`
}

// TableName 은 GORM에서 사용할 테이블명을 반환한다.
func (JudgmentUsage) TableName() string {
	return "judgment_usage"
}

// Delta 는 한 번에 누적할 사용량 증분이다.
type Delta struct {
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	ModelCalls      int64
	Fallbacks       int64
}

// Empty 는 누적할 값이 없는지 확인한다.
func (d Delta) Empty() bool {
	return d.InputTokens <= 0 && d.OutputTokens <= 0 && d.ModelCalls <= 0 && d.Fallbacks <= 0
}

func (d *Delta) add(other Delta) {
	d.InputTokens += other.InputTokens
	d.OutputTokens += other.OutputTokens
	d.ReasoningTokens += other.ReasoningTokens
	d.ModelCalls += other.ModelCalls
	d.Fallbacks += other.Fallbacks
}

// events 는 배치 한도 계산에 쓰는 이벤트 수다.
func (d Delta) events() int64 {
	return d.ModelCalls + d.Fallbacks
}

// DailyUsage 는 API/집계용 일자별 사용량 뷰 모델이다.
type DailyUsage struct {
	UsageDate       time.Time `json:"usage_date"`
	InputTokens     int64     `json:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	ReasoningTokens int64     `json:"reasoning_tokens"`
	ModelCalls      int64     `json:"model_calls"`
	Fallbacks       int64     `json:"fallbacks"`
}

// TotalTokens 는 입력+출력 토큰 합계를 반환한다.
func (d DailyUsage) TotalTokens() int64 {
	return d.InputTokens + d.OutputTokens
}

// FallbackRatio 는 전체 판정 중 규칙 기반 판정 비율이다.
func (d DailyUsage) FallbackRatio() float64 {
	total := d.ModelCalls + d.Fallbacks
	if total == 0 {
		return 0
	}
	return float64(d.Fallbacks) / float64(total)
}

func dailyFromRow(row JudgmentUsage) DailyUsage {
	return DailyUsage{
		UsageDate:       row.UsageDate,
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		ReasoningTokens: row.ReasoningTokens,
		ModelCalls:      row.ModelCalls,
		Fallbacks:       row.Fallbacks,
	}
}
