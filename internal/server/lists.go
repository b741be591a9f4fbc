package server

import (
	"net/http"

	"github.com/karlvoss/aisle/internal/list"
)

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be {\"name\": ...}")
		return
	}

	l, err := s.store.CreateList(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l.View())
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.Lists(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	views := make([]list.View, len(lists))
	for i, l := range lists {
		views[i] = l.View()
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": views})
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	l, err := s.store.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l.View())
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteList(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareList(w http.ResponseWriter, r *http.Request) {
	l, err := s.store.GetList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": l.ShareText()})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Unit     string `json:"unit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be {\"name\", \"quantity\", \"unit\"}")
		return
	}

	item, err := s.executor.AddItem(r.Context(), r.PathValue("id"), req.Name, req.Quantity, req.Unit, list.ViaManual)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req list.ItemUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "body must be a partial item update")
		return
	}

	item, err := s.executor.UpdateItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := s.executor.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("itemID")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDecrementItem is the UI stepper's minus button. Quantity 0 in the
// response means the entry was removed.
func (s *Server) handleDecrementItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.executor.DecrementItem(r.Context(), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
