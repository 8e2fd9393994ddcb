package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/internal/lobby"
)

var ErrShutdown = errors.New("hub shut down")

type HubMsg interface{ isHubMsg() }

// GetLobby looks up Code without starting a lobby. Nothing in the server
// sends it; tests use it through Inbox to inspect the hub.
type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the running lobby for Code, starting one if there is
// none or the previous one has stopped.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby drops Code only while it still maps to Lobby, so a late
// notice from a stopped lobby cannot evict its replacement.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

// CountLobbies backs Count.
type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     lobby.Config
	ctx     context.Context
	cancel  context.CancelFunc
}

func (GetLobby) isHubMsg()     {}
func (EnsureLobby) isHubMsg()  {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

func NewHub(parent context.Context, cfg lobby.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		ctx:     ctx,
		cancel:  cancel,
	}
	cfg.OnIdle = h.release
	h.cfg = cfg
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			clear(h.lobbies)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil && !lb.Closed() {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Code, h.cfg)
				h.lobbies[msg.Code] = lb
				msg.Reply <- lb

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				// Lobbies run under h.ctx and stop with it.
				h.cancel()
			}
		}
	}
}

func (h *Hub) release(code string, lb *lobby.Lobby) {
	select {
	case h.inbox <- RemoveLobby{Code: code, Lobby: lb}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) ensure(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- EnsureLobby{Code: code, Reply: reply}:
	case <-h.ctx.Done():
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case lb := <-reply:
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do routes cmd to the lobby that owns code. All commands for one code run
// one at a time, in arrival order.
func (h *Hub) Do(ctx context.Context, code string, cmd engine.Command) (lobby.Result, error) {
	for {
		lb, err := h.ensure(ctx, code)
		if err != nil {
			return lobby.Result{}, err
		}
		res, err := lb.Do(ctx, cmd)
		if errors.Is(err, lobby.ErrClosed) {
			// Went idle between lookup and send; the hub hands out a new one.
			continue
		}
		return res, err
	}
}

// Count returns the number of lobbies the hub is tracking.
func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.inbox <- CountLobbies{Reply: reply}:
	case <-h.ctx.Done():
		return 0, ErrShutdown
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.ctx.Done():
		return 0, ErrShutdown
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}
