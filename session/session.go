// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/ballrace/network"
)

// Session 一条已连接客户端的会话。UserID 在 join-lobby 之后才会被填充。
type Session struct {
	ID          string
	Conn        network.Connection
	UserID      string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	LastActive  time.Time
	mutex       sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Identify binds the external player identity to this session.
func (s *Session) Identify(userID, displayName string, isAdmin bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.UserID = userID
	s.DisplayName = displayName
	s.IsAdmin = isAdmin
}

// Identity returns the bound identity, empty until Identify was called.
func (s *Session) Identity() (userID, displayName string, isAdmin bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID, s.DisplayName, s.IsAdmin
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

// Touch 更新活跃时间，心跳清理依赖该时间戳
func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

// IdleSince reports whether the session has been silent since the deadline.
func (s *Session) IdleSince(deadline time.Time) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.LastActive.Before(deadline)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByUserID 同一个玩家可能有多个连接（例如刷新页面后）
func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	return result
}

// All returns a snapshot of every live session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
