package hub

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Conn is the transport a session writes to and reads from.
// *websocket.Conn from gofiber/contrib satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Message types, matching RFC 6455 opcodes.
const (
	TextMessage   = 1
	BinaryMessage = 2
)

// State 세션 연결 상태
type State int

const (
	StateConnecting State = iota // 수락 대기
	StateOpen                    // 프레임 처리 중
	StateClosed                  // 종료 (terminal)
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrSessionClosed 닫힌 세션에 전송 시도
var ErrSessionClosed = errors.New("session closed")

// TransportFailure 특정 연결의 송수신 실패
type TransportFailure struct {
	SessionID string
	Err       error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("transport failure on session %s: %v", e.SessionID, e.Err)
}

func (e *TransportFailure) Unwrap() error {
	return e.Err
}

// Session 연결 하나의 식별자와 생명주기 (Thread-Safe)
type Session struct {
	ID          string
	ConnectedAt time.Time

	conn         Conn
	writeTimeout time.Duration

	mu      sync.RWMutex
	state   State
	writeMu sync.Mutex
}

// Conn 세션의 전송 핸들
func (s *Session) Conn() Conn {
	return s.conn
}

// State 현재 상태 조회
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// IsOpen 프레임 처리 가능 여부
func (s *Session) IsOpen() bool {
	return s.State() == StateOpen
}

// close Closed로 전환. 이미 닫혔으면 false
// 진행 중인 Send가 끝난 뒤에 전환되므로, 반환 후에는 conn에 쓰지 않는다.
func (s *Session) close() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	return true
}

// Send 바이너리 프레임 한 개 전송. 전송 시도는 writeTimeout으로 제한된다.
func (s *Session) Send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.IsOpen() {
		return &TransportFailure{SessionID: s.ID, Err: ErrSessionClosed}
	}
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return &TransportFailure{SessionID: s.ID, Err: err}
		}
	}
	if err := s.conn.WriteMessage(BinaryMessage, frame); err != nil {
		return &TransportFailure{SessionID: s.ID, Err: err}
	}
	return nil
}

// Duration 연결 유지 시간
func (s *Session) Duration() time.Duration {
	return time.Since(s.ConnectedAt)
}
