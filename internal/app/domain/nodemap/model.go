package nodemap

import (
	"encoding/json"
	"time"
)

// Nodemap is a user-owned graph. NodesData and EdgesData hold the serialized
// JSON arrays exactly as stored.
type Nodemap struct {
	ID          int64
	UserID      int64
	Name        string
	Goal        string
	Description string
	CreatedAt   time.Time
	IsFavorite  bool
	NodesData   string
	EdgesData   string
}

// Summary is the listing projection; it omits the graph payload.
type Summary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Goal        string    `json:"goal"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	IsFavorite  bool      `json:"is_favorite"`
}

// Detail is a nodemap with its decoded graph payload.
type Detail struct {
	Summary
	NodesData json.RawMessage `json:"nodes_data"`
	EdgesData json.RawMessage `json:"edges_data"`
}

// Summary returns the listing projection of n.
func (n Nodemap) Summary() Summary {
	return Summary{
		ID:          n.ID,
		Name:        n.Name,
		Goal:        n.Goal,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
		IsFavorite:  n.IsFavorite,
	}
}

// Detail decodes the stored payload. It fails with ErrCorruptPayload when
// either column does not hold a JSON array.
func (n Nodemap) Detail() (Detail, error) {
	nodes, err := DecodeGraph(n.NodesData)
	if err != nil {
		return Detail{}, err
	}
	edges, err := DecodeGraph(n.EdgesData)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Summary: n.Summary(), NodesData: nodes, EdgesData: edges}, nil
}
