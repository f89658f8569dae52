// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	repository "github.com/okian/halloffame/internal/adapters/repository"
	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
	"github.com/okian/halloffame/pkg/metrics"
)

// maxBodyBytes caps person payloads.
const maxBodyBytes = 1 << 20

// PeopleDependencies defines the interface for person CRUD operations.
type PeopleDependencies interface {
	ListPeople(ctx context.Context) ([]model.Person, error)
	GetPerson(ctx context.Context, id int64) (model.Person, error)
	CreatePerson(ctx context.Context, p model.Person) error
	UpdatePerson(ctx context.Context, id int64, p model.Person) error
	DeletePerson(ctx context.Context, id int64) (model.Person, error)
}

// PeopleHandler is the validation gate in front of the person store.
// Malformed input of any kind collapses to an empty 400 and a missing
// target to an empty 404.
type PeopleHandler struct {
	deps PeopleDependencies
	log  logger.Logger
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(deps PeopleDependencies, log logger.Logger) *PeopleHandler {
	if log == nil {
		log = logger.Get().Named("api")
	}
	return &PeopleHandler{deps: deps, log: log}
}

// HandleList handles GET /api/v1/persons requests.
func (h *PeopleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_persons"
	people, err := h.deps.ListPeople(r.Context())
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

// HandleGet handles GET /api/v1/person/{id} requests.
func (h *PeopleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_person"
	id, err := pathID(r)
	if err != nil {
		h.reject(r.Context(), w, op, err)
		return
	}
	p, err := h.deps.GetPerson(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCreate handles POST /api/v1/person requests.
func (h *PeopleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_person"
	p, err := decodePerson(w, r)
	if err != nil {
		h.reject(r.Context(), w, op, err)
		return
	}
	if err := h.deps.CreatePerson(r.Context(), p); err != nil {
		// Store refusals of a valid payload are the caller's problem too.
		if errors.Is(err, repository.ErrAlreadyExists) || errors.Is(err, repository.ErrRejected) {
			h.reject(r.Context(), w, op, err)
			return
		}
		h.fail(r.Context(), w, op, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleUpdate handles PUT /api/v1/person/{id} requests. The payload id must
// equal the path id.
func (h *PeopleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_person"
	p, err := decodePerson(w, r)
	if err != nil {
		h.reject(r.Context(), w, op, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.reject(r.Context(), w, op, err)
		return
	}
	if p.ID != id {
		h.reject(r.Context(), w, op, ErrMismatch)
		return
	}
	if err := h.deps.UpdatePerson(r.Context(), id, p); err != nil {
		if errors.Is(err, repository.ErrRejected) {
			h.reject(r.Context(), w, op, err)
			return
		}
		h.fail(r.Context(), w, op, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleDelete handles DELETE /api/v1/person/{id} requests.
func (h *PeopleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_person"
	id, err := pathID(r)
	if err != nil {
		h.reject(r.Context(), w, op, err)
		return
	}
	if _, err := h.deps.DeletePerson(r.Context(), id); err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleMissingID answers PUT /api/v1/person without an id.
func (h *PeopleHandler) HandleMissingID(w http.ResponseWriter, r *http.Request) {
	h.reject(r.Context(), w, "api.update_person", ErrMissingID)
}

// reject answers an empty 400 and counts the validation failure.
func (h *PeopleHandler) reject(ctx context.Context, w http.ResponseWriter, op string, cause error) {
	metrics.RecordValidationFailure(op)
	h.log.Debug(ctx, "request rejected", logger.Error(WrapKind(op, ErrBadRequest, cause)))
	w.WriteHeader(http.StatusBadRequest)
}

// fail maps a dependency error to 404 or 500.
func (h *PeopleHandler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		h.log.Debug(ctx, "person not found", logger.Error(WrapKind(op, ErrNotFound, err)))
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.log.Error(ctx, "request failed", logger.Error(WrapKind(op, ErrInternal, err)))
	w.WriteHeader(http.StatusInternalServerError)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, ErrMissingID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// decodePerson reads and validates a person payload. An empty body and a
// JSON null both count as a missing payload; anything after the first JSON
// value is rejected.
func decodePerson(w http.ResponseWriter, r *http.Request) (model.Person, error) {
	var p *model.Person
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		return model.Person{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.Person{}, ErrTrailingData
	}
	if p == nil {
		return model.Person{}, ErrNoPayload
	}
	if err := p.Validate(); err != nil {
		return model.Person{}, err
	}
	return *p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
