package ratesource

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router exposes the source over HTTP so page-side components (and
// anything else on the machine) can ask "give me current rates":
//
//	GET /v1/rates → {"rates":{...},"origin":"fetched","fetched_at":...}
func (s *Source) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/v1/rates", s.handleRates)
	return r
}

func (s *Source) handleRates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Current()); err != nil {
		s.logger.Warn("ratesource: encode rates response failed", "error", err)
	}
}
