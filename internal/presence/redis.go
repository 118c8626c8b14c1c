package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionSetKey = "presence:sessions"

// Tracker 세션 presence 추적기
// hub.Observer로 등록되어 연결/해제 시 호출된다.
type Tracker interface {
	SessionOpened(sessionID string)
	SessionClosed(sessionID string)
	Heartbeat(sessionID string)
}

// PresenceData Redis에 저장될 세션 상태 데이터
type PresenceData struct {
	SessionID     string `json:"session_id"`
	ConnectedAt   int64  `json:"connected_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
	ServerID      string `json:"server_id"` // 멀티 서버 확장 대비
}

// Manager Redis 기반 Presence 관리자
type Manager struct {
	client   *redis.Client
	ttl      time.Duration
	serverID string
	timeout  time.Duration
}

// NewManager 생성자 (연결 확인 후 반환)
func NewManager(addr, password string, db int, ttl time.Duration) (*Manager, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	hostname, _ := os.Hostname()
	log.Printf("[Presence] Connected to %s (ttl=%v)", addr, ttl)
	return &Manager{
		client:   rdb,
		ttl:      ttl,
		serverID: hostname,
		timeout:  3 * time.Second,
	}, nil
}

// Key 생성 유틸
func sessionKey(sessionID string) string {
	return fmt.Sprintf("presence:session:%s", sessionID)
}

func (m *Manager) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// SetPresence 세션 상태 기록 (Connect)
func (m *Manager) SetPresence(ctx context.Context, sessionID string) error {
	now := time.Now().Unix()
	jsonData, err := json.Marshal(PresenceData{
		SessionID:     sessionID,
		ConnectedAt:   now,
		LastHeartbeat: now,
		ServerID:      m.serverID,
	})
	if err != nil {
		return err
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), jsonData, m.ttl)
	pipe.SAdd(ctx, sessionSetKey, sessionID)
	_, err = pipe.Exec(ctx)
	return err
}

// UpdateHeartbeat 생존 신고 (TTL 연장)
func (m *Manager) UpdateHeartbeat(ctx context.Context, sessionID string) error {
	ok, err := m.client.Expire(ctx, sessionKey(sessionID), m.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s not found (expired)", sessionID)
	}
	return nil
}

// RemovePresence 세션 상태 삭제 (Disconnect)
func (m *Manager) RemovePresence(ctx context.Context, sessionID string) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	pipe.SRem(ctx, sessionSetKey, sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// GetPresence 세션 상태 조회 (없으면 nil)
func (m *Manager) GetPresence(ctx context.Context, sessionID string) (*PresenceData, error) {
	val, err := m.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data PresenceData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CountLive TTL이 살아 있는 세션 수 (만료된 멤버는 정리)
func (m *Manager) CountLive(ctx context.Context) (int, error) {
	ids, err := m.client.SMembers(ctx, sessionSetKey).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	// MGET으로 한 번에 조회
	results, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}

	live := 0
	var stale []any
	for i, result := range results {
		if result == nil {
			stale = append(stale, ids[i])
			continue
		}
		live++
	}
	if len(stale) > 0 {
		m.client.SRem(ctx, sessionSetKey, stale...)
	}
	return live, nil
}

// SessionOpened hub.Observer 구현
func (m *Manager) SessionOpened(sessionID string) {
	ctx, cancel := m.context()
	defer cancel()
	if err := m.SetPresence(ctx, sessionID); err != nil {
		log.Printf("[Presence] Failed to set %s: %v", sessionID, err)
	}
}

// SessionClosed hub.Observer 구현
func (m *Manager) SessionClosed(sessionID string) {
	ctx, cancel := m.context()
	defer cancel()
	if err := m.RemovePresence(ctx, sessionID); err != nil {
		log.Printf("[Presence] Failed to remove %s: %v", sessionID, err)
	}
}

// Heartbeat ping 수신 시 TTL 연장
func (m *Manager) Heartbeat(sessionID string) {
	ctx, cancel := m.context()
	defer cancel()
	if err := m.UpdateHeartbeat(ctx, sessionID); err != nil {
		log.Printf("[Presence] Heartbeat %s: %v", sessionID, err)
	}
}

// Close Redis 연결 종료
func (m *Manager) Close() error {
	return m.client.Close()
}

// Nop Redis 미설정 시 사용
type Nop struct{}

func (Nop) SessionOpened(string) {}
func (Nop) SessionClosed(string) {}
func (Nop) Heartbeat(string)     {}
