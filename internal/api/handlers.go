package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/models"
	"github.com/starford/hagal/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteRef extracts the note address from the {vault} and {fname} URL params.
func noteRef(r *http.Request) (models.NoteRef, bool) {
	vault, err := url.PathUnescape(chi.URLParam(r, "vault"))
	if err != nil {
		return models.NoteRef{}, false
	}
	fname, err := url.PathUnescape(chi.URLParam(r, "fname"))
	if err != nil {
		return models.NoteRef{}, false
	}
	if vault == "" || fname == "" {
		return models.NoteRef{}, false
	}
	return models.NoteRef{Vault: vault, Fname: fname}, true
}

// ListVaults handles GET /api/vaults.
//
//	@Summary		List the workspace vaults
//	@Tags			vaults
//	@Produce		json
//	@Success		200	{object}	VaultListResponse
//	@Security		BearerAuth
//	@Router			/vaults [get]
func (h *Handler) ListVaults(w http.ResponseWriter, r *http.Request) {
	vaults := h.svc.Vaults(r.Context())
	if vaults == nil {
		vaults = []models.Vault{}
	}
	writeJSON(w, http.StatusOK, VaultListResponse{Vaults: vaults})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List indexed notes with optional pagination
//	@Tags			notes
//	@Produce		json
//	@Param			vault	query		string	false	"Restrict to one vault"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), q.Get("vault"), limit, offset)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []NoteListItem{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{vault}/{fname}.
//
//	@Summary		Get a single note with its links and backlinks
//	@Tags			notes
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	ref, ok := noteRef(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("vault and fname are required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), ref)
	if err != nil {
		h.writeError(w, "get note failed", err, slog.String("note", ref.String()))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Backlinks handles GET /api/notes/{vault}/{fname}/backlinks.
//
//	@Summary		List the notes linking to a note
//	@Tags			notes
//	@Produce		json
//	@Param			vault	path		string	true	"Vault name"
//	@Param			fname	path		string	true	"Note fname"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/notes/{vault}/{fname}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	ref, ok := noteRef(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("vault and fname are required"))
		return
	}
	refs, err := h.svc.Backlinks(r.Context(), ref)
	if err != nil {
		h.writeError(w, "backlinks failed", err, slog.String("note", ref.String()))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: refs})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, toGraphResponse(nodes, links))
}

// BrokenLinks handles GET /api/links/broken.
//
//	@Summary		List links whose target note does not exist
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	BrokenLinksResponse
//	@Security		BearerAuth
//	@Router			/links/broken [get]
func (h *Handler) BrokenLinks(w http.ResponseWriter, r *http.Request) {
	broken, err := h.svc.BrokenLinks(r.Context())
	if err != nil {
		slog.Error("broken links failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	resp := BrokenLinksResponse{Links: make([]BrokenLinkItem, len(broken))}
	for i, b := range broken {
		resp.Links[i] = BrokenLinkItem{From: b.From, To: b.To}
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunDoctor handles POST /api/doctor.
//
//	@Summary		Preview or apply a doctor action
//	@Description	Without confirm the response carries only the plan preview.
//	@Tags			doctor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DoctorRequest	true	"Doctor run"
//	@Success		200		{object}	DoctorResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/doctor [post]
func (h *Handler) RunDoctor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	resp, err := h.svc.RunDoctor(r.Context(), req)
	if err != nil {
		h.writeError(w, "doctor failed", err, slog.String("action", req.Action))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNoActiveNote):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("a note is required for file scope"))
	case errors.Is(err, apperr.ErrConfiguration):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
