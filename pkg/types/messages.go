package types

// Client -> Server

type CreateDraftRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
}

type JoinRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name,omitempty"`
}

type ReadyRequest struct {
	PlayerID string `json:"playerId"`
	IsReady  bool   `json:"isReady"`
}

type SelectRequest struct {
	PlayerID   string `json:"playerId"`
	ChampionID string `json:"championId"`
}

// PatchAction names the operation carried by a PatchRequest.
type PatchAction string

const (
	PatchJoin      PatchAction = "join"
	PatchReady     PatchAction = "ready"
	PatchSelection PatchAction = "selection"
)

// PatchRequest is the single-route form of join/ready/select used by older
// clients.
type PatchRequest struct {
	DraftID  string      `json:"draftId"`
	PlayerID string      `json:"playerId"`
	Action   PatchAction `json:"action"`
	Data     PatchData   `json:"data"`
}

type PatchData struct {
	Name    string `json:"name,omitempty"`
	IsReady bool   `json:"isReady,omitempty"`
	// Champion is accepted for its id only.
	Champion   *Champion `json:"champion,omitempty"`
	ChampionID string    `json:"championId,omitempty"`
}

// SelectedChampionID returns the champion id from either form.
func (d PatchData) SelectedChampionID() string {
	if d.ChampionID != "" {
		return d.ChampionID
	}
	if d.Champion != nil {
		return d.Champion.ID
	}
	return ""
}

// Server -> Client

// Envelope wraps every JSON response. Code is set for rejected commands and
// holds the rejection reason.
type Envelope struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message,omitempty"`
	Code          string     `json:"code,omitempty"`
	DraftID       string     `json:"draftId,omitempty"`
	DraftInstance *Draft     `json:"draftInstance,omitempty"`
	Snapshot      *Snapshot  `json:"snapshot,omitempty"`
	Champions     []Champion `json:"champions,omitempty"`
}
