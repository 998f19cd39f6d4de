package lobby

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/wfunc/ballrace/models"
)

var (
	// ErrInvalidCount is returned for a non-positive purchase count.
	ErrInvalidCount = errors.New("ball count must be positive")
	// ErrCapacityExceeded is returned when a purchase would push a player
	// past the per-player ball cap. The purchase is rejected atomically.
	ErrCapacityExceeded = errors.New("max balls per player exceeded")
	// ErrLobbyFull is returned when a new player would push the lobby past
	// the player cap.
	ErrLobbyFull = errors.New("lobby is full")
)

// ballColors is the renderer palette; a color is assigned at purchase
// and follows the ball into the race.
var ballColors = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#96CEB4",
	"#FFEAA7",
	"#DDA0DD",
	"#98D8C8",
}

// Ball is a purchased ball stub. Position and velocity are assigned
// when a race materializes it.
type Ball struct {
	ID    string
	Color string
}

// Player is a lobby entry. Entries live from first join or purchase
// until the lobby is drained at race promotion or cleared by an admin
// reset.
type Player struct {
	UserID      string
	DisplayName string
	IsAdmin     bool
	Balls       []Ball
	seq         int
}

// Lobby 等待池。没有内部锁：所有修改都必须发生在引擎的事件循环上，
// 循环本身就是串行化点。
type Lobby struct {
	players           map[string]*Player
	order             []string
	maxBallsPerPlayer int
	maxPlayers        int
	rng               *rand.Rand
}

func New(maxBallsPerPlayer, maxPlayers int, rng *rand.Rand) *Lobby {
	return &Lobby{
		players:           make(map[string]*Player),
		maxBallsPerPlayer: maxBallsPerPlayer,
		maxPlayers:        maxPlayers,
		rng:               rng,
	}
}

// Join registers a player, idempotently. A join refreshes the display
// name and admin flag but never touches purchased balls. Returns nil
// when the lobby is at its player cap.
func (l *Lobby) Join(userID, displayName string, isAdmin bool) *Player {
	p, exists := l.players[userID]
	if !exists {
		if l.maxPlayers > 0 && len(l.players) >= l.maxPlayers {
			return nil
		}
		p = &Player{UserID: userID}
		l.players[userID] = p
		l.order = append(l.order, userID)
	}
	p.DisplayName = displayName
	p.IsAdmin = isAdmin
	return p
}

// AddBalls appends count ball stubs to the player, creating the entry on
// first purchase. Fails without mutation when count is invalid or the
// per-player cap would be exceeded. Returns the player's new total.
func (l *Lobby) AddBalls(userID, displayName string, count int) (int, error) {
	if count < 1 {
		return 0, ErrInvalidCount
	}

	p, exists := l.players[userID]
	if exists && len(p.Balls)+count > l.maxBallsPerPlayer {
		return len(p.Balls), ErrCapacityExceeded
	}
	if !exists {
		if count > l.maxBallsPerPlayer {
			return 0, ErrCapacityExceeded
		}
		p = l.Join(userID, displayName, false)
		if p == nil {
			return 0, ErrLobbyFull
		}
	}

	for i := 0; i < count; i++ {
		p.Balls = append(p.Balls, Ball{
			ID:    fmt.Sprintf("%s_%d", userID, p.seq),
			Color: ballColors[l.rng.Intn(len(ballColors))],
		})
		p.seq++
	}

	return len(p.Balls), nil
}

// Player looks up a lobby entry.
func (l *Lobby) Player(userID string) (*Player, bool) {
	p, exists := l.players[userID]
	return p, exists
}

// Remove drops a player, e.g. on disconnect.
func (l *Lobby) Remove(userID string) {
	if _, exists := l.players[userID]; !exists {
		return
	}
	delete(l.players, userID)
	for i, id := range l.order {
		if id == userID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// FundedPlayers counts players holding at least one ball.
func (l *Lobby) FundedPlayers() int {
	n := 0
	for _, p := range l.players {
		if len(p.Balls) > 0 {
			n++
		}
	}
	return n
}

// TotalBalls counts every purchased ball in the pool.
func (l *Lobby) TotalBalls() int {
	n := 0
	for _, p := range l.players {
		n += len(p.Balls)
	}
	return n
}

func (l *Lobby) Len() int {
	return len(l.players)
}

// Snapshot 构造只读视图用于广播，绝不暴露内部对象。
func (l *Lobby) Snapshot() models.LobbyUpdate {
	update := models.LobbyUpdate{
		Players:      make([]models.LobbyPlayer, 0, len(l.order)),
		TotalPlayers: len(l.players),
	}
	for _, id := range l.order {
		p := l.players[id]
		update.Players = append(update.Players, models.LobbyPlayer{
			Username:  p.DisplayName,
			BallCount: len(p.Balls),
		})
	}
	return update
}

// Drain returns every funded player in join order and empties the
// registry in the same step. This is the promotion primitive: callers
// on the engine loop observe the lobby either full or empty, never
// partially cleared.
func (l *Lobby) Drain() []*Player {
	funded := make([]*Player, 0, len(l.order))
	for _, id := range l.order {
		p := l.players[id]
		if len(p.Balls) > 0 {
			funded = append(funded, p)
		}
	}
	l.Clear()
	return funded
}

// Clear atomically empties the registry. Used by promotion and by an
// explicit admin reset.
func (l *Lobby) Clear() {
	l.players = make(map[string]*Player)
	l.order = l.order[:0]
}
