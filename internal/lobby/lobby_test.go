package lobby

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/internal/store"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func catalog() []engine.Champion {
	return []engine.Champion{
		{ID: "Aatrox", Name: "Aatrox"},
		{ID: "Ahri", Name: "Ahri"},
		{ID: "Akali", Name: "Akali"},
		{ID: "Zed", Name: "Zed"},
	}
}

// seed stores a draft that is waiting for the first ban.
func seed(t *testing.T, s store.Store, code string) engine.Draft {
	t.Helper()
	d := engine.NewDraft(code, "host", "", catalog(), "14.11.1", t0)
	d.RedTeam.Player = &engine.Participant{ID: "rival", Name: engine.DefaultRedName, IsReady: true}
	d.BlueTeam.Player.IsReady = true
	d.CurrentPhaseIndex = 0
	if err := s.Create(context.Background(), d, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return d
}

func newTestLobby(ctx context.Context, s store.Store, code string, idle time.Duration, onIdle func(string, *Lobby)) *Lobby {
	return NewLobby(ctx, code, Config{
		Store:       s,
		TTL:         time.Hour,
		IdleTimeout: idle,
		Now:         func() time.Time { return t0 },
		OnIdle:      onIdle,
	})
}

// helper: ask the lobby for its view with a timeout so tests never hang
func recvView(t *testing.T, l *Lobby, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	select {
	case l.Inbox() <- GetState{Reply: reply}:
	case <-time.After(within):
		t.Fatalf("timed out sending GetState")
	}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func ban(actor, champ string) engine.Command {
	return engine.Command{Type: engine.CmdSelect, ActorID: actor, Champion: engine.Champion{ID: champ, Name: champ}}
}

func TestLobby_Select_PersistsAndBumpsVersion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := store.NewMemory()
	seed(t, s, "ABC123")
	l := newTestLobby(ctx, s, "ABC123", time.Minute, nil)

	res, err := l.Do(ctx, ban("host", "Zed"))
	if err != nil || res.Err != nil {
		t.Fatalf("select: %v / %v", err, res.Err)
	}
	if res.Draft.Version != 1 || res.Draft.CurrentPhaseIndex != 1 {
		t.Fatalf("want version=1 phase=1, got version=%d phase=%d", res.Draft.Version, res.Draft.CurrentPhaseIndex)
	}
	if !res.Draft.UpdatedAt.Equal(t0) {
		t.Fatalf("updatedAt should come from the lobby clock, got %v", res.Draft.UpdatedAt)
	}

	stored, err := s.Get(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Version != 1 || len(stored.BlueTeam.Bans) != 1 {
		t.Fatalf("stored draft not updated: %+v", stored)
	}

	if v := recvView(t, l, 100*time.Millisecond); v.Handled != 1 {
		t.Fatalf("want handled=1, got %d", v.Handled)
	}
}

func TestLobby_RejectionIsNotPersisted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := store.NewMemory()
	seed(t, s, "ABC123")
	l := newTestLobby(ctx, s, "ABC123", time.Minute, nil)

	res, err := l.Do(ctx, ban("rival", "Zed"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !errors.Is(res.Err, engine.ErrNotYourTurn) {
		t.Fatalf("want ErrNotYourTurn, got %v", res.Err)
	}

	stored, _ := s.Get(ctx, "ABC123")
	if stored.Version != 0 || stored.CurrentPhaseIndex != 0 {
		t.Fatalf("rejected command changed the store: %+v", stored)
	}
}

func TestLobby_MissingDraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := newTestLobby(ctx, store.NewMemory(), "NOPE00", time.Minute, nil)
	res, err := l.Do(ctx, ban("host", "Zed"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !errors.Is(res.Err, store.ErrNotFound) {
		t.Fatalf("want store.ErrNotFound, got %v", res.Err)
	}
}

func TestLobby_SerializesDuplicateSubmissions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := store.NewMemory()
	seed(t, s, "ABC123")
	l := newTestLobby(ctx, s, "ABC123", time.Minute, nil)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, champ := range []string{"Zed", "Ahri"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Do(ctx, ban("host", champ))
			if err != nil {
				t.Errorf("do: %v", err)
			}
			results[i] = res
		}()
	}
	wg.Wait()

	ok := 0
	for _, r := range results {
		switch {
		case r.Err == nil:
			ok++
		case !errors.Is(r.Err, engine.ErrNotYourTurn):
			t.Fatalf("loser should see NotYourTurn against the new state, got %v", r.Err)
		}
	}
	if ok != 1 {
		t.Fatalf("want exactly one accepted selection, got %d", ok)
	}

	stored, _ := s.Get(ctx, "ABC123")
	if stored.CurrentPhaseIndex != 1 || stored.Version != 1 {
		t.Fatalf("want phase=1 version=1, got phase=%d version=%d", stored.CurrentPhaseIndex, stored.Version)
	}
}

// racingStore lets another writer sneak in before the first Save.
type racingStore struct {
	store.Store
	once sync.Once
}

func (r *racingStore) Save(ctx context.Context, d engine.Draft, expected int64, ttl time.Duration) error {
	r.once.Do(func() {
		other, _ := r.Store.Get(ctx, d.ID)
		other.BlueTeam.Player.Name = "renamed elsewhere"
		other.Version++
		_ = r.Store.Save(ctx, other, other.Version-1, ttl)
	})
	return r.Store.Save(ctx, d, expected, ttl)
}

func TestLobby_RetriesOnConflict(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := store.NewMemory()
	seed(t, mem, "ABC123")
	l := newTestLobby(ctx, &racingStore{Store: mem}, "ABC123", time.Minute, nil)

	res, err := l.Do(ctx, ban("host", "Zed"))
	if err != nil || res.Err != nil {
		t.Fatalf("select: %v / %v", err, res.Err)
	}
	if res.Draft.Version != 2 {
		t.Fatalf("want version=2 after retry, got %d", res.Draft.Version)
	}
	if res.Draft.BlueTeam.Player.Name != "renamed elsewhere" {
		t.Fatalf("retry must start from the other writer's record")
	}
	if v := recvView(t, l, 100*time.Millisecond); v.Retries != 1 {
		t.Fatalf("want retries=1, got %d", v.Retries)
	}
}

func TestLobby_IdleTimeoutStopsLobby(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idled := make(chan string, 1)
	l := newTestLobby(ctx, store.NewMemory(), "ABC123", 50*time.Millisecond, func(code string, _ *Lobby) {
		idled <- code
	})

	select {
	case code := <-idled:
		if code != "ABC123" {
			t.Fatalf("unexpected code %q", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("lobby never went idle")
	}

	if !l.Closed() {
		t.Fatalf("idle lobby should be closed")
	}
	if _, err := l.Do(ctx, ban("host", "Zed")); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}

func TestLobby_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := newTestLobby(ctx, store.NewMemory(), "ABC123", time.Minute, nil)
	l.Inbox() <- Shutdown{}

	select {
	case <-l.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("lobby did not stop")
	}
}

func TestLobby_ParentCancelStopsLobby(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := newTestLobby(ctx, store.NewMemory(), "ABC123", time.Minute, nil)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("lobby did not stop on parent cancel")
	}
}
