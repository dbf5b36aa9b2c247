package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
)

// ErrSessionNotFound 는 세션 미존재 오류다.
var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "turtlesoup:game:"

// Store 는 게임 세션 상태 저장소다. Valkey 가 없으면 프로세스 메모리를 쓴다.
// 값은 JSON + zstd 로 저장한다.
type Store struct {
	client valkey.Client
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	memory map[string]memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewStore 는 설정에 맞는 세션 저장소를 생성한다.
// 연결에 실패하면 Required 일 때만 오류를 반환하고, 아니면 메모리 저장소로 내려간다.
func NewStore(ctx context.Context, cfg config.SessionStoreConfig, sessionCfg config.SessionConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := time.Duration(sessionCfg.SessionTTLMinutes) * time.Minute

	if !cfg.Enabled {
		if cfg.Required {
			return nil, errors.New("session store required but disabled")
		}
		logger.Info("session_store_memory", "reason", "disabled")
		return NewMemoryStore(ttl), nil
	}

	client, err := connect(ctx, cfg, logger)
	if err != nil {
		if cfg.Required {
			return nil, err
		}
		logger.Warn("session_store_memory", "reason", "connect_failed", "err", err)
		return NewMemoryStore(ttl), nil
	}

	logger.Info("session_store_valkey", "ttl", ttl)
	return &Store{client: client, ttl: ttl, logger: logger}, nil
}

// NewMemoryStore 는 프로세스 메모리 저장소를 생성한다. ttl <= 0 이면 만료하지 않는다.
func NewMemoryStore(ttl time.Duration) *Store {
	return &Store{
		ttl:    ttl,
		logger: slog.Default(),
		memory: make(map[string]memoryEntry),
		now:    time.Now,
	}
}

func connect(ctx context.Context, cfg config.SessionStoreConfig, logger *slog.Logger) (valkey.Client, error) {
	conn, err := parseConnURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse session store url: %w", err)
	}

	var tlsConfig *tls.Config
	if conn.useTLS {
		host, _, _ := net.SplitHostPort(conn.addr)
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}

	option := valkey.ClientOption{
		TLSConfig:    tlsConfig,
		Username:     conn.username,
		Password:     conn.password,
		InitAddress:  []string{conn.addr},
		SelectDB:     conn.selectDB,
		DisableCache: cfg.DisableCache,
	}

	attempts := max(cfg.ConnectMaxAttempts, 1)
	delay := time.Duration(cfg.ConnectRetrySeconds) * time.Second
	for attempt := 1; ; attempt++ {
		client, err := valkey.NewClient(option)
		if err == nil {
			return client, nil
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("connect to valkey after %d attempts: %w", attempt, err)
		}
		logger.Warn("session_store_connect_retry", "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to valkey: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// Backend 는 "valkey" 또는 "memory" 를 반환한다.
func (s *Store) Backend() string {
	if s.client != nil {
		return "valkey"
	}
	return "memory"
}

// Close 는 Valkey 연결을 종료한다.
func (s *Store) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Save 는 상태를 저장하고 TTL 을 갱신한다.
func (s *Store) Save(ctx context.Context, state turtlesoup.GameState) error {
	if strings.TrimSpace(state.SessionID) == "" {
		return errors.New("session id is empty")
	}
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	if s.client == nil {
		s.saveMemory(state.SessionID, data)
		return nil
	}

	builder := s.client.B().Set().Key(key(state.SessionID)).Value(valkey.BinaryString(data))
	var cmd valkey.Completed
	if s.ttl > 0 {
		cmd = builder.Ex(s.ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load 는 상태를 읽는다. 없으면 ErrSessionNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (turtlesoup.GameState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return turtlesoup.GameState{}, ErrSessionNotFound
	}

	var data []byte
	if s.client == nil {
		var ok bool
		data, ok = s.loadMemory(sessionID)
		if !ok {
			return turtlesoup.GameState{}, ErrSessionNotFound
		}
	} else {
		cmd := s.client.B().Get().Key(key(sessionID)).Build()
		raw, err := s.client.Do(ctx, cmd).AsBytes()
		if err != nil {
			if valkey.IsValkeyNil(err) {
				return turtlesoup.GameState{}, ErrSessionNotFound
			}
			return turtlesoup.GameState{}, fmt.Errorf("load session: %w", err)
		}
		data = raw
	}

	state, err := decodeState(data)
	if err != nil {
		return turtlesoup.GameState{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

// Delete 는 상태를 지운다. 없는 세션은 오류가 아니다.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if s.client == nil {
		s.mu.Lock()
		delete(s.memory, sessionID)
		s.mu.Unlock()
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Del().Key(key(sessionID)).Build()).Error(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Count 는 현재 세션 수(근사치)를 반환한다. Valkey 에서는 SCAN 으로 센다.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pruneLocked(s.now())
		return len(s.memory), nil
	}

	var count int
	var cursor uint64
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(keyPrefix + "*").Count(100).Build()
		entry, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		count += len(entry.Elements)
		cursor = entry.Cursor
		if cursor == 0 {
			return count, nil
		}
	}
}

// Ping 은 Valkey 연결을 확인한다. 메모리 저장소는 항상 성공한다.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping valkey: %w", err)
	}
	return nil
}

func (s *Store) saveMemory(sessionID string, data []byte) {
	now := s.now()
	entry := memoryEntry{data: data}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.mu.Lock()
	s.pruneLocked(now)
	s.memory[sessionID] = entry
	s.mu.Unlock()
}

func (s *Store) loadMemory(sessionID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.memory[sessionID]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.memory, sessionID)
		return nil, false
	}
	return entry.data, true
}

func (s *Store) pruneLocked(now time.Time) {
	for id, entry := range s.memory {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.memory, id)
		}
	}
}
