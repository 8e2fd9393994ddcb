package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/catalog"
	"github.com/DoyleJ11/lol-draft-room/internal/engine"
	"github.com/DoyleJ11/lol-draft-room/internal/session"
	"github.com/DoyleJ11/lol-draft-room/internal/store"
	"github.com/DoyleJ11/lol-draft-room/pkg/types"
)

// CodeConflict marks a write that kept losing the version race. Clients may
// retry it.
const CodeConflict = "Conflict"

func writeJSON(w http.ResponseWriter, status int, body types.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// withDraft fills the draft fields of env from d.
func withDraft(env types.Envelope, d engine.Draft) types.Envelope {
	snap := types.NewSnapshot(d)
	env.DraftInstance = &d
	env.Snapshot = &snap
	return env
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rej *engine.Rejection
	switch {
	case errors.Is(err, session.ErrValidation):
		writeJSON(w, http.StatusBadRequest, types.Envelope{Message: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, types.Envelope{Message: "Draft not found"})
	case errors.As(err, &rej):
		writeJSON(w, http.StatusConflict, types.Envelope{Message: rej.Message, Code: string(rej.Reason)})
	case errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, types.Envelope{Message: "draft was modified concurrently, try again", Code: CodeConflict})
	case errors.Is(err, catalog.ErrUpstream):
		s.log.Warn("catalog unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, types.Envelope{Message: "champion catalog unavailable"})
	default:
		s.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, types.Envelope{Message: "internal error"})
	}
}

// decode reads a JSON body into v, reporting malformed input as a validation
// error.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", session.ErrValidation)
	}
	return nil
}
