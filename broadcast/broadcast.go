// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/ballrace/session"
)

var (
	ErrNoSessions = errors.New("no sessions to broadcast to")
)

// 广播接口。广播是尽力而为的：单个连接发送失败不影响其他连接，
// 也绝不影响模拟循环。
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToUser(userID string, msgID uint16, data []byte) error
}

// SessionBroadcaster 把消息推送给所有已连接会话。
// 整个进程只有一个大厅和至多一场比赛，所以不需要按房间分组。
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	sessions := b.sessionManager.All()
	if len(sessions) == 0 {
		return ErrNoSessions
	}

	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由服务器的读循环负责清理
			continue
		}
	}

	return nil
}

func (b *SessionBroadcaster) BroadcastToUser(userID string, msgID uint16, data []byte) error {
	sessions := b.sessionManager.GetByUserID(userID)
	if len(sessions) == 0 {
		return ErrNoSessions
	}

	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
