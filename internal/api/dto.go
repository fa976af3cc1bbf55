package api

import (
	"github.com/starford/hagal/internal/index"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/noteservice"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// DoctorRequest is the request body for POST /api/doctor.
type DoctorRequest = noteservice.DoctorRequest

// DoctorResponse carries a preview or an applied result.
type DoctorResponse = noteservice.DoctorResponse

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// VaultListResponse wraps the vault list.
type VaultListResponse struct {
	Vaults []models.Vault `json:"vaults" validate:"required"`
}

// GraphNode is a note in the link graph.
type GraphNode struct {
	ID     string `json:"id" example:"dendron://personal/a.b" validate:"required"`
	Vault  string `json:"vault" example:"personal" validate:"required"`
	Fname  string `json:"fname" example:"a.b" validate:"required"`
	NoteID string `json:"noteId,omitempty" example:"k3j2h1"`
	Title  string `json:"title,omitempty" example:"B"`
}

// GraphLink is an edge in the link graph.
type GraphLink struct {
	Source string `json:"source" example:"dendron://personal/a" validate:"required"`
	Target string `json:"target" example:"dendron://personal/a.b" validate:"required"`
}

// GraphResponse wraps the link graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// BacklinksResponse lists the notes linking to one note.
type BacklinksResponse struct {
	Backlinks []models.NoteRef `json:"backlinks" validate:"required"`
}

// BrokenLinkItem is a link whose target note is missing.
type BrokenLinkItem struct {
	From models.NoteRef `json:"from" validate:"required"`
	To   models.NoteRef `json:"to" validate:"required"`
}

// BrokenLinksResponse wraps the broken link report.
type BrokenLinksResponse struct {
	Links []BrokenLinkItem `json:"links" validate:"required"`
}

func toGraphResponse(nodes []index.GraphNode, links []index.GraphLink) GraphResponse {
	resp := GraphResponse{
		Nodes: make([]GraphNode, len(nodes)),
		Links: make([]GraphLink, len(links)),
	}
	for i, n := range nodes {
		resp.Nodes[i] = GraphNode{
			ID:     n.Ref.String(),
			Vault:  n.Ref.Vault,
			Fname:  n.Ref.Fname,
			NoteID: n.NoteID,
			Title:  n.Title,
		}
	}
	for i, l := range links {
		resp.Links[i] = GraphLink{Source: l.From.String(), Target: l.To.String()}
	}
	return resp
}
