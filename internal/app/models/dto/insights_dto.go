package dto

import (
	"strconv"

	"github.com/biograph/insights/internal/curriculum"
)

// GraphNode is a discipline in the prerequisite graph view
type GraphNode struct {
	ID   int64  `json:"id" example:"2"`
	Name string `json:"name" example:"Genética"`
}

// GraphResponse is the prerequisite graph consumed by the force-graph view.
// Each link points from a discipline (source) to one of its prerequisites (target).
type GraphResponse struct {
	Nodes []GraphNode       `json:"nodes"`
	Links []curriculum.Edge `json:"links"`
}

// NewGraphResponse converts a validated graph to its wire form
func NewGraphResponse(g *curriculum.Graph) GraphResponse {
	ids := g.IDs()
	resp := GraphResponse{
		Nodes: make([]GraphNode, 0, len(ids)),
		Links: g.Edges(),
	}
	for _, id := range ids {
		resp.Nodes = append(resp.Nodes, GraphNode{ID: id, Name: g.Name(id)})
	}
	if resp.Links == nil {
		resp.Links = []curriculum.Edge{}
	}
	return resp
}

// Recommendation is a discipline the student can start now
type Recommendation struct {
	ID      int64   `json:"id" example:"2"`
	Name    string  `json:"name" example:"Genética"`
	Prereqs []int64 `json:"prereqs"`
}

// RecommendationsResponse lists recommended disciplines in ascending id order
type RecommendationsResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// NewRecommendationsResponse resolves names and prerequisites of the recommended ids
func NewRecommendationsResponse(g *curriculum.Graph, ids []int64) RecommendationsResponse {
	resp := RecommendationsResponse{Recommendations: make([]Recommendation, 0, len(ids))}
	for _, id := range ids {
		prereqs := g.Prerequisites(id)
		if prereqs == nil {
			prereqs = []int64{}
		}
		resp.Recommendations = append(resp.Recommendations, Recommendation{
			ID:      id,
			Name:    g.Name(id),
			Prereqs: prereqs,
		})
	}
	return resp
}

// GraduationPathRequest names the disciplines the student must finish
type GraduationPathRequest struct {
	RequiredIDs []int64 `json:"required_ids" binding:"required,dive,gt=0"`
}

// GraduationPathResponse is the ordered list of disciplines still to take
type GraduationPathResponse struct {
	Path []int64 `json:"path"`
}

// ProgressResponse is a student's curriculum map. Keys are discipline ids.
type ProgressResponse struct {
	Positions map[string][2]float64 `json:"positions"`
	Statuses  map[string]string     `json:"statuses"`
	Labels    map[string]string     `json:"labels"`
}

// NewProgressResponse converts statuses to their wire names
func NewProgressResponse(p curriculum.Progress) ProgressResponse {
	resp := ProgressResponse{
		Positions: make(map[string][2]float64, len(p.Positions)),
		Statuses:  make(map[string]string, len(p.Statuses)),
		Labels:    make(map[string]string, len(p.Labels)),
	}
	for id, pos := range p.Positions {
		resp.Positions[strconv.FormatInt(id, 10)] = pos
	}
	for id, st := range p.Statuses {
		resp.Statuses[strconv.FormatInt(id, 10)] = st.Wire()
	}
	for id, label := range p.Labels {
		resp.Labels[strconv.FormatInt(id, 10)] = label
	}
	return resp
}
