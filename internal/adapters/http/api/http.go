// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/halloffame/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PeopleDependencies

	// Ready reports whether the backing store can serve requests.
	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	readyHandler  *ReadyHandler
	statsHandler  *StatsHandler
	peopleHandler *PeopleHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		readyHandler:  NewReadyHandler(deps),
		statsHandler:  NewStatsHandler(statsProvider),
		peopleHandler: NewPeopleHandler(deps, logger.Get().Named("api")),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", instrument(s.readyHandler.HandleReady, "readyz"))
	mux.HandleFunc("GET /stats", instrument(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/v1/persons", instrument(s.peopleHandler.HandleList, "persons"))
	mux.HandleFunc("POST /api/v1/person", instrument(s.peopleHandler.HandleCreate, "person"))
	mux.HandleFunc("PUT /api/v1/person", instrument(s.peopleHandler.HandleMissingID, "person"))
	mux.HandleFunc("GET /api/v1/person/{id}", instrument(s.peopleHandler.HandleGet, "person_id"))
	mux.HandleFunc("PUT /api/v1/person/{id}", instrument(s.peopleHandler.HandleUpdate, "person_id"))
	mux.HandleFunc("DELETE /api/v1/person/{id}", instrument(s.peopleHandler.HandleDelete, "person_id"))
}
