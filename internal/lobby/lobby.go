package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/internal/store"
)

// ErrClosed is returned by Do when the lobby has already stopped. Callers get
// a fresh lobby from the hub and try again.
var ErrClosed = errors.New("lobby closed")

const (
	maxConflictRetries = 5
	DefaultIdleTimeout = 2 * time.Minute
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Ctx   context.Context
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// GetState asks for the lobby's counters. It is sent only by tests.
type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Result is what one command did to the stored draft. Err is either a
// *engine.Rejection (Draft is the unchanged record) or a store failure.
type Result struct {
	Events []engine.Event
	Draft  engine.Draft
	Err    error
}

// View is the reply to GetState.
type View struct {
	Code    string
	Handled int
	Retries int
}

type Config struct {
	Store       store.Store
	TTL         time.Duration
	IdleTimeout time.Duration
	Now         func() time.Time
	Logger      *zap.Logger
	// OnIdle runs on the lobby goroutine after it stops for lack of traffic.
	OnIdle func(code string, l *Lobby)
}

// Lobby is the single writer for one draft code. It holds no draft state of
// its own: every command reloads the record, applies it and writes it back
// with a version check, so a lobby can be dropped at any time.
type Lobby struct {
	code    string
	cfg     Config
	inbox   chan Msg
	done    chan struct{}
	handled int
	retries int
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, code string, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.TTL <= 0 {
		cfg.TTL = store.DefaultTTL
	}

	l := &Lobby{
		code: code,
		cfg:  cfg,
		// Unbuffered: a send only succeeds once the loop has taken the message,
		// so nothing can be stranded in the inbox when the lobby stops.
		inbox:  make(chan Msg),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	idle := time.NewTimer(l.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-idle.C:
			l.shutdown()
			if l.cfg.OnIdle != nil {
				l.cfg.OnIdle(l.code, l)
			}
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case FromClient:
				msg.Reply <- l.handle(msg.Ctx, msg.Cmd)

			case GetState:
				msg.Reply <- View{Code: l.code, Handled: l.handled, Retries: l.retries}

			case Shutdown:
				l.shutdown()
				return
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(l.cfg.IdleTimeout)
		}
	}
}

func (l *Lobby) handle(ctx context.Context, cmd engine.Command) Result {
	l.handled++
	log := l.cfg.Logger.With(zap.String("draft_id", l.code), zap.String("command", string(cmd.Type)))

	for attempt := 0; ; attempt++ {
		current, err := l.cfg.Store.Get(ctx, l.code)
		if err != nil {
			return Result{Err: err}
		}

		cmd.At = l.cfg.Now()
		events, next, err := engine.Apply(current, cmd)
		if err != nil {
			return Result{Draft: current, Err: err}
		}
		if !engine.Changed(events) {
			return Result{Events: events, Draft: current}
		}

		next.Version = current.Version + 1
		err = l.cfg.Store.Save(ctx, next, current.Version, l.cfg.TTL)
		if errors.Is(err, store.ErrConflict) && attempt < maxConflictRetries {
			l.retries++
			log.Debug("draft changed underneath us, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Result{Err: err}
		}
		return Result{Events: events, Draft: next}
	}
}

func (l *Lobby) shutdown() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.cancel()
}

// Do runs cmd on the lobby goroutine and waits for its result.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Ctx: ctx, Cmd: cmd, Reply: reply}:
	case <-l.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Closed reports whether the lobby has stopped taking messages.
func (l *Lobby) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Lobby) Done() <-chan struct{} { return l.done }

// Expose the inbox so tests can send control messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }
