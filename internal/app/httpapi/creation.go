package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/nodemap_service/internal/app/domain/nodemap"
	"github.com/R3E-Network/nodemap_service/internal/httputil"
)

// resourceID accepts a JSON number or a numeric string. A missing or empty
// value decodes to 0; anything else that is not an integer decodes to -1,
// which no store row can match.
type resourceID int64

func (id *resourceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*id = -1
			return nil
		}
		text = strings.TrimSpace(s)
		if text == "" {
			*id = 0
			return nil
		}
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		*id = -1
		return nil
	}
	*id = resourceID(v)
	return nil
}

type createNodemapRequest struct {
	Name        string `json:"name"`
	Goal        string `json:"goal"`
	Description string `json:"description"`
}

type createNodemapResponse struct {
	Message     string    `json:"message"`
	NodemapID   int64     `json:"nodemap_id"`
	Name        string    `json:"name"`
	Goal        string    `json:"goal"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	NodesData   string    `json:"nodes_data"`
	EdgesData   string    `json:"edges_data"`
	IsFavorite  bool      `json:"is_favorite"`
}

type createAgentRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
}

type createAgentResponse struct {
	Message      string    `json:"message"`
	AgentID      int64     `json:"agent_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt"`
	CreatedAt    time.Time `json:"created_at"`
}

type saveNodemapRequest struct {
	NodemapID resourceID      `json:"nodemap_id"`
	Nodes     json.RawMessage `json:"nodes"`
	Edges     json.RawMessage `json:"edges"`
}

type nodemapIDRequest struct {
	ID resourceID `json:"id"`
}

func (h *handler) createNodemap(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	var req createNodemapRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	nm, err := h.app.Resources.CreateNodemap(r.Context(), userID, req.Name, req.Goal, req.Description)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createNodemapResponse{
		Message:     "Nodemap created successfully",
		NodemapID:   nm.ID,
		Name:        nm.Name,
		Goal:        nm.Goal,
		Description: nm.Description,
		CreatedAt:   nm.CreatedAt,
		NodesData:   nm.NodesData,
		EdgesData:   nm.EdgesData,
		IsFavorite:  nm.IsFavorite,
	})
}

func (h *handler) createAgent(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	var req createAgentRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	a, err := h.app.Resources.CreateAgent(r.Context(), userID, req.Name, req.Type, req.Model, req.SystemPrompt)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createAgentResponse{
		Message:      "Agent created successfully",
		AgentID:      a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
		CreatedAt:    a.CreatedAt,
	})
}

func (h *handler) saveNodemap(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	var req saveNodemapRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	nodemapID := int64(req.NodemapID)
	if err := h.app.Resources.SaveNodemapData(r.Context(), userID, nodemapID, req.Nodes, req.Edges); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Nodemap data saved successfully",
		"nodemap_id": nodemapID,
	})
}

func (h *handler) listNodemaps(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}

	summaries, err := h.app.Resources.ListNodemaps(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]nodemap.Summary{"nodemaps": summaries})
}

func (h *handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	var req nodemapIDRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	nodemapID := int64(req.ID)
	favorite, err := h.app.Resources.ToggleFavorite(r.Context(), userID, nodemapID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Favorite status updated",
		"is_favorite": favorite,
		"nodemap_id":  nodemapID,
	})
}

func (h *handler) getNodemapData(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.RequireUserID(w, r)
	if !ok {
		return
	}
	var req nodemapIDRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	detail, err := h.app.Resources.GetNodemapData(r.Context(), userID, int64(req.ID))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}
