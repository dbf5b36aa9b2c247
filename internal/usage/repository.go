package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/park285/turtle-soup-judge/internal/config"
)

const defaultRecentDays = 7

// Repository 는 judgment_usage 테이블(Postgres)에 일자별 판정 사용량을 쌓는다.
// 연결은 첫 사용 때 열고 스키마는 AutoMigrate 로 맞춘다.
type Repository struct {
	cfg    *config.Config
	logger *slog.Logger

	mu    sync.Mutex
	db    *gorm.DB
	sqlDB *sql.DB
}

// NewRepository 는 usage 저장소를 생성한다. DB 에는 아직 붙지 않는다.
func NewRepository(cfg *config.Config, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{cfg: cfg, logger: logger}
}

// AddUsage 는 하루치 행에 delta 를 더한다. 행이 없으면 만들고, 있으면 upsert 로 합산한다.
func (r *Repository) AddUsage(ctx context.Context, delta Delta, usageDate time.Time) error {
	if delta.Empty() {
		return nil
	}
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	row := JudgmentUsage{
		UsageDate:       dayOrToday(usageDate),
		InputTokens:     delta.InputTokens,
		OutputTokens:    delta.OutputTokens,
		ReasoningTokens: delta.ReasoningTokens,
		ModelCalls:      delta.ModelCalls,
		Fallbacks:       delta.Fallbacks,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "usage_date"}},
		DoUpdates: clause.Assignments(accumulate("input_tokens", "output_tokens", "reasoning_tokens", "model_calls", "fallbacks")),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert judgment usage: %w", err)
	}
	return nil
}

// accumulate 는 ON CONFLICT 시 기존 값에 새 값을 더하는 대입문을 만든다.
func accumulate(columns ...string) map[string]any {
	assignments := make(map[string]any, len(columns)+1)
	for _, column := range columns {
		assignments[column] = gorm.Expr(fmt.Sprintf("judgment_usage.%[1]s + EXCLUDED.%[1]s", column))
	}
	assignments["version"] = gorm.Expr("judgment_usage.version + 1")
	return assignments
}

// GetDailyUsage 는 하루치 사용량을 돌려준다. 기록이 없으면 nil.
func (r *Repository) GetDailyUsage(ctx context.Context, usageDate time.Time) (*DailyUsage, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var row JudgmentUsage
	err = db.WithContext(ctx).Where("usage_date = ?", dayOrToday(usageDate)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily usage: %w", err)
	}
	daily := dailyFromRow(row)
	return &daily, nil
}

// GetRecentUsage 는 오늘부터 거슬러 days 일 동안의 사용량을 최신순으로 돌려준다.
// 기록이 없는 날도 0 으로 채워 항상 days 개를 반환한다.
func (r *Repository) GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	if days <= 0 {
		days = defaultRecentDays
	}
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	today := dayOrToday(time.Time{})
	since := today.AddDate(0, 0, -(days - 1))
	var rows []JudgmentUsage
	err = db.WithContext(ctx).
		Where("usage_date >= ? AND usage_date <= ?", since, today).
		Order("usage_date desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list recent usage: %w", err)
	}
	return fillDays(rows, today, days), nil
}

// fillDays 는 today 부터 과거로 days 개의 칸을 만들고 rows 를 날짜로 맞춰 넣는다.
func fillDays(rows []JudgmentUsage, today time.Time, days int) []DailyUsage {
	byDay := make(map[string]JudgmentUsage, len(rows))
	for _, row := range rows {
		byDay[row.UsageDate.Format(time.DateOnly)] = row
	}

	out := make([]DailyUsage, 0, days)
	for i := range days {
		day := today.AddDate(0, 0, -i)
		row, ok := byDay[day.Format(time.DateOnly)]
		if !ok {
			out = append(out, DailyUsage{UsageDate: day})
			continue
		}
		out = append(out, dailyFromRow(row))
	}
	return out
}

// Close 는 열린 연결 풀을 닫는다. 다시 쓰면 새로 연다.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sqlDB == nil {
		return
	}
	if err := r.sqlDB.Close(); err != nil {
		r.logger.Warn("usage_db_close_failed", "err", err)
	}
	r.sqlDB = nil
	r.db = nil
}

func (r *Repository) conn(ctx context.Context) (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		return r.db, nil
	}
	if r.cfg == nil {
		return nil, errors.New("database config is nil")
	}
	dbCfg := r.cfg.Database

	db, err := gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&JudgmentUsage{}); err != nil {
		return nil, fmt.Errorf("migrate judgment_usage: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get usage db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbCfg.MinPool)
	sqlDB.SetMaxOpenConns(dbCfg.MaxPool)
	if dbCfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	r.logger.Info("usage_db_connected", "host", dbCfg.Host, "name", dbCfg.Name)
	r.db = db
	r.sqlDB = sqlDB
	return db, nil
}

func dayOrToday(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return dateOf(t)
}

func dateOf(t time.Time) time.Time {
	local := t.In(time.Local)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
