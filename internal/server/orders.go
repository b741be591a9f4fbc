package server

import "net/http"

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	result, err := s.executor.PlaceOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := s.executor.OrderHistory(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
