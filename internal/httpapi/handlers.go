package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/catalog"
	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/internal/session"
	"github.com/DoyleJ11/lol-draft-room/pkg/types"
)

// Drafts is the part of session.Gateway the HTTP layer uses.
type Drafts interface {
	Create(ctx context.Context, hostID, name string) (engine.Draft, error)
	Join(ctx context.Context, id, actorID, name string) (session.Result, error)
	SetReady(ctx context.Context, id, actorID string, ready bool) (session.Result, error)
	Select(ctx context.Context, id, actorID, championID string) (session.Result, error)
	Get(ctx context.Context, id string) (engine.Draft, error)
}

type Server struct {
	drafts         Drafts
	catalog        catalog.Source
	catalogVersion string
	log            *zap.Logger
}

func NewServer(drafts Drafts, champions catalog.Source, catalogVersion string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{drafts: drafts, catalog: champions, catalogVersion: catalogVersion, log: logger.Named("http")}
}

func (s *Server) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req types.CreateDraftRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.drafts.Create(r.Context(), req.PlayerID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, withDraft(types.Envelope{Success: true, DraftID: d.ID}, d))
}

// GetDraft serves both /api/drafts/{id} and /api/drafts?id=.
func (s *Server) GetDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}

	d, err := s.drafts.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withDraft(types.Envelope{Success: true}, d))
}

func (s *Server) JoinDraft(w http.ResponseWriter, r *http.Request) {
	var req types.JoinRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.drafts.Join(r.Context(), chi.URLParam(r, "id"), req.PlayerID, req.Name)
	s.writeResult(w, r, res, err)
}

func (s *Server) SetReady(w http.ResponseWriter, r *http.Request) {
	var req types.ReadyRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.drafts.SetReady(r.Context(), chi.URLParam(r, "id"), req.PlayerID, req.IsReady)
	s.writeResult(w, r, res, err)
}

func (s *Server) SelectChampion(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.drafts.Select(r.Context(), chi.URLParam(r, "id"), req.PlayerID, req.ChampionID)
	s.writeResult(w, r, res, err)
}

// PatchDraft dispatches the single-route {draftId, playerId, action, data}
// form onto the same operations as the per-action routes.
func (s *Server) PatchDraft(w http.ResponseWriter, r *http.Request) {
	var req types.PatchRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DraftID == "" || req.PlayerID == "" || req.Action == "" {
		s.writeError(w, r, fmt.Errorf("%w: draftId, playerId and action are required", session.ErrValidation))
		return
	}

	var (
		res session.Result
		err error
	)
	switch req.Action {
	case types.PatchJoin:
		res, err = s.drafts.Join(r.Context(), req.DraftID, req.PlayerID, req.Data.Name)
	case types.PatchReady:
		res, err = s.drafts.SetReady(r.Context(), req.DraftID, req.PlayerID, req.Data.IsReady)
	case types.PatchSelection:
		res, err = s.drafts.Select(r.Context(), req.DraftID, req.PlayerID, req.Data.SelectedChampionID())
	default:
		err = fmt.Errorf("%w: unknown action %q", session.ErrValidation, req.Action)
	}
	s.writeResult(w, r, res, err)
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res session.Result, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withDraft(types.Envelope{Success: true, Message: resultMessage(res.Events)}, res.Draft))
}

func resultMessage(events []engine.Event) string {
	switch {
	case engine.ContainsEvent(events, engine.EvtPlayerRejoined):
		return "Rejoined draft."
	case engine.ContainsEvent(events, engine.EvtHostRejoined):
		return "You are the host (Blue Team)."
	case engine.ContainsEvent(events, engine.EvtDraftStarted):
		return "Both players ready, draft started."
	case engine.ContainsEvent(events, engine.EvtDraftCompleted):
		return "Draft complete."
	}
	return ""
}

func (s *Server) ListChampions(w http.ResponseWriter, r *http.Request) {
	champs, err := s.catalog.Fetch(r.Context(), s.catalogVersion)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Envelope{Success: true, Champions: champs})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
