package http

import (
	"net/http"
	"strings"
)

func itemID(r *http.Request) string { return strings.TrimSpace(r.PathValue("itemID")) }

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	view, err := s.reader.Items(r.Context(), tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := req.item(tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.budget.AddLedgerItem(r.Context(), item)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/items/"+created.ID).
		Data(created).
		Write(w)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	view, err := s.reader.Item(r.Context(), itemID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	var req itemPatchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.budget.EditLedgerItem(r.Context(), itemID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(updated).Write(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.budget.DeleteLedgerItem(r.Context(), itemID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	view, err := s.reader.Split(r.Context(), itemID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}
