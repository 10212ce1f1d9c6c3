package stats

import (
	"encoding/json"
	"net/http"
	"strings"
)

type HTTPHandler struct {
	service Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(service Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/daily-stats/", h.handleDaily)
}

func (h *HTTPHandler) handleDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	playerID := strings.TrimPrefix(r.URL.Path, "/api/daily-stats/")
	playerID = strings.TrimSpace(strings.Trim(playerID, "/"))
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "missing player id")
		return
	}

	results, err := h.service.Daily(r.Context(), playerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
