// Package session is the entry point for every draft operation. It checks
// request shape, normalizes ids and hands commands to the hub, which runs them
// one at a time per draft.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/catalog"
	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/internal/hub"
	"github.com/DoyleJ11/lol-draft-room/internal/store"
)

const maxCreateAttempts = 8

var (
	ErrValidation = errors.New("invalid request")
	// ErrIDSpace means maxCreateAttempts fresh ids were all taken.
	ErrIDSpace = errors.New("could not allocate a draft id")
)

// Result is the outcome of a mutating call. Draft is the stored record after
// the call; for a rejection it is the unchanged record.
type Result struct {
	Draft  engine.Draft
	Events []engine.Event
}

type Config struct {
	Store          store.Store
	Hub            *hub.Hub
	Catalog        catalog.Source
	CatalogVersion string
	TTL            time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
	// NewID defaults to store.NewID.
	NewID func() (string, error)
}

type Gateway struct {
	cfg    Config
	log    *zap.Logger
	tracer trace.Tracer
}

func NewGateway(cfg Config) *Gateway {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = store.DefaultTTL
	}
	if cfg.CatalogVersion == "" {
		cfg.CatalogVersion = catalog.DefaultVersion
	}
	if cfg.NewID == nil {
		cfg.NewID = store.NewID
	}
	return &Gateway{
		cfg:    cfg,
		log:    cfg.Logger.Named("session"),
		tracer: otel.Tracer("github.com/DoyleJ11/lol-draft-room/internal/session"),
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func (g *Gateway) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, "session."+op, trace.WithAttributes(attrs...))
}

// finish records err on span. Rejections are normal outcomes and do not mark
// the span as failed.
func finish(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	var r *engine.Rejection
	if errors.As(err, &r) {
		span.SetAttributes(attribute.String("draft.rejection", string(r.Reason)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Create snapshots the catalog and stores a new draft hosted by hostID on
// the blue side.
func (g *Gateway) Create(ctx context.Context, hostID, name string) (d engine.Draft, err error) {
	ctx, span := g.start(ctx, "Create", attribute.String("player.id", hostID))
	defer func() { finish(span, err) }()

	hostID = strings.TrimSpace(hostID)
	if hostID == "" {
		return engine.Draft{}, invalid("playerId is required")
	}

	champs, err := g.cfg.Catalog.Fetch(ctx, g.cfg.CatalogVersion)
	if err != nil {
		g.log.Error("catalog fetch failed", zap.String("version", g.cfg.CatalogVersion), zap.Error(err))
		return engine.Draft{}, fmt.Errorf("load catalog: %w", err)
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := g.cfg.NewID()
		if err != nil {
			return engine.Draft{}, fmt.Errorf("generate id: %w", err)
		}
		d = engine.NewDraft(id, hostID, strings.TrimSpace(name), champs, g.cfg.CatalogVersion, g.cfg.Now())
		err = g.cfg.Store.Create(ctx, d, g.cfg.TTL)
		if errors.Is(err, store.ErrExists) {
			g.log.Debug("collision on draft id, regenerating", zap.String("draft_id", id))
			continue
		}
		if err != nil {
			return engine.Draft{}, fmt.Errorf("create draft: %w", err)
		}
		span.SetAttributes(attribute.String("draft.id", d.ID))
		g.log.Info("draft created", zap.String("draft_id", d.ID), zap.String("host_id", hostID), zap.Int("champions", len(champs)))
		return d, nil
	}
	return engine.Draft{}, ErrIDSpace
}

// Join seats actorID on the red side, or confirms an existing seat.
func (g *Gateway) Join(ctx context.Context, id, actorID, name string) (res Result, err error) {
	ctx, span := g.start(ctx, "Join", attribute.String("draft.id", id), attribute.String("player.id", actorID))
	defer func() { finish(span, err) }()

	id, actorID, err = g.identify(id, actorID)
	if err != nil {
		return Result{}, err
	}
	return g.run(ctx, id, engine.Command{Type: engine.CmdJoin, ActorID: actorID, Name: strings.TrimSpace(name)})
}

func (g *Gateway) SetReady(ctx context.Context, id, actorID string, ready bool) (res Result, err error) {
	ctx, span := g.start(ctx, "SetReady", attribute.String("draft.id", id), attribute.String("player.id", actorID), attribute.Bool("ready", ready))
	defer func() { finish(span, err) }()

	id, actorID, err = g.identify(id, actorID)
	if err != nil {
		return Result{}, err
	}
	return g.run(ctx, id, engine.Command{Type: engine.CmdSetReady, ActorID: actorID, Ready: ready})
}

// Select bans or picks championID for the team whose turn it is. The id is
// resolved against the draft's own catalog snapshot.
func (g *Gateway) Select(ctx context.Context, id, actorID, championID string) (res Result, err error) {
	ctx, span := g.start(ctx, "Select", attribute.String("draft.id", id), attribute.String("player.id", actorID), attribute.String("champion.id", championID))
	defer func() { finish(span, err) }()

	id, actorID, err = g.identify(id, actorID)
	if err != nil {
		return Result{}, err
	}
	championID = strings.TrimSpace(championID)
	if championID == "" {
		return Result{}, invalid("championId is required")
	}

	// Only the id travels; the engine copies the rest from the draft's own
	// catalog snapshot.
	return g.run(ctx, id, engine.Command{Type: engine.CmdSelect, ActorID: actorID, Champion: engine.Champion{ID: championID}})
}

func (g *Gateway) Get(ctx context.Context, id string) (d engine.Draft, err error) {
	ctx, span := g.start(ctx, "Get", attribute.String("draft.id", id))
	defer func() { finish(span, err) }()

	id = engine.NormalizeID(id)
	if id == "" {
		return engine.Draft{}, invalid("draft id is required")
	}
	return g.cfg.Store.Get(ctx, id)
}

// Delete removes a draft. It is not reachable from the public router.
func (g *Gateway) Delete(ctx context.Context, id string) (err error) {
	ctx, span := g.start(ctx, "Delete", attribute.String("draft.id", id))
	defer func() { finish(span, err) }()

	id = engine.NormalizeID(id)
	if id == "" {
		return invalid("draft id is required")
	}
	if err := g.cfg.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	g.log.Info("draft deleted", zap.String("draft_id", id))
	return nil
}

func (g *Gateway) identify(id, actorID string) (string, string, error) {
	id = engine.NormalizeID(id)
	if id == "" {
		return "", "", invalid("draft id is required")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", "", invalid("playerId is required")
	}
	return id, actorID, nil
}

func (g *Gateway) run(ctx context.Context, id string, cmd engine.Command) (Result, error) {
	r, err := g.cfg.Hub.Do(ctx, id, cmd)
	if err != nil {
		return Result{}, err
	}
	if r.Err != nil {
		if engine.IsRejection(r.Err) {
			g.log.Debug("command rejected", zap.String("draft_id", id), zap.String("command", string(cmd.Type)), zap.Error(r.Err))
			return Result{Draft: r.Draft}, r.Err
		}
		if !errors.Is(r.Err, store.ErrNotFound) {
			g.log.Error("command failed", zap.String("draft_id", id), zap.String("command", string(cmd.Type)), zap.Error(r.Err))
		}
		return Result{}, r.Err
	}
	return Result{Draft: r.Draft, Events: r.Events}, nil
}
