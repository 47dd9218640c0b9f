// Package server exposes the open timelines over HTTP: computed layouts go
// out as JSON and user interactions come back in as JSON messages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tiliavir/timeline-manager/internal/container"
	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
)

const tracerName = "github.com/Tiliavir/timeline-manager/internal/server"

// Server serializes all access to one container. Mutations are saved
// through the repository before the response is written.
type Server struct {
	mu          sync.Mutex
	c           *container.Container
	repo        storage.Repository
	perspective layout.Perspective
	tracer      trace.Tracer
}

// New returns a server over c. perspective is used when a request names none.
func New(c *container.Container, repo storage.Repository, perspective layout.Perspective) *Server {
	return &Server{
		c:           c,
		repo:        repo,
		perspective: perspective,
		tracer:      otel.Tracer(tracerName),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /timelines", s.handleListTimelines)
	mux.HandleFunc("GET /timelines/{id}", s.handleGetTimeline)
	mux.HandleFunc("GET /timelines/{id}/layout", s.handleGetLayout)
	mux.HandleFunc("POST /timelines/{id}/activate", s.handleActivate)
	mux.HandleFunc("POST /interactions", s.handleInteraction)
	return mux
}

// TimelineSummary is one entry of GET /timelines.
type TimelineSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	StartDate  model.Date `json:"start_date"`
	EndDate    model.Date `json:"end_date"`
	EventCount int        `json:"event_count"`
	Active     bool       `json:"active"`
	Unsaved    bool       `json:"unsaved"`
}

// InteractionResponse is the reply to POST /interactions. Layout is the
// active timeline's layout after the interaction was applied.
type InteractionResponse struct {
	Result container.Result `json:"result"`
	Layout layout.Layout    `json:"layout"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListTimelines(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.Start(r.Context(), "timelines.list")
	defer span.End()

	s.mu.Lock()
	active := s.c.Active()
	var out []TimelineSummary
	for _, tl := range s.c.Timelines() {
		out = append(out, TimelineSummary{
			ID:         tl.ID,
			Name:       tl.Name,
			StartDate:  tl.StartDate,
			EndDate:    tl.EndDate,
			EventCount: len(tl.Events),
			Active:     tl == active,
			Unsaved:    tl.HasUnsavedChanges,
		})
	}
	s.mu.Unlock()

	if out == nil {
		out = []TimelineSummary{}
	}
	span.SetAttributes(attribute.Int("timeline.count", len(out)))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, span := s.tracer.Start(r.Context(), "timelines.get",
		trace.WithAttributes(attribute.String("timeline.id", id)))
	defer span.End()

	s.mu.Lock()
	tl, err := s.c.Timeline(id)
	if err == nil {
		tl = tl.Clone()
	}
	s.mu.Unlock()
	if err != nil {
		s.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, span := s.tracer.Start(r.Context(), "timelines.layout",
		trace.WithAttributes(attribute.String("timeline.id", id)))
	defer span.End()

	p, err := s.perspectiveParam(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("layout.perspective", p.String()))

	s.mu.Lock()
	l, err := s.c.LayoutOf(id, p)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("layout.rows", l.RowCount),
		attribute.Int("layout.columns", l.ColumnCount),
	)
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, span := s.tracer.Start(r.Context(), "timelines.activate",
		trace.WithAttributes(attribute.String("timeline.id", id)))
	defer span.End()

	s.mu.Lock()
	err := s.c.SetActiveTimeline(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "interactions.dispatch")
	defer span.End()

	var in container.Interaction
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		s.fail(w, span, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	span.SetAttributes(attribute.String("interaction.kind", string(in.Kind)))
	if in.EventID != nil {
		span.SetAttributes(attribute.Int("event.id", *in.EventID))
	}

	p, err := s.perspectiveParam(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.c.Dispatch(in)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	if res.Changed {
		if err := s.save(ctx, s.c.Active()); err != nil {
			s.fail(w, span, err)
			return
		}
	}
	l, err := s.c.Layout(p)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, InteractionResponse{Result: res, Layout: l})
}

func (s *Server) save(ctx context.Context, tl *model.Timeline) error {
	ctx, span := s.tracer.Start(ctx, "timelines.save",
		trace.WithAttributes(attribute.String("timeline.id", tl.ID)))
	defer span.End()
	if err := s.repo.Save(ctx, tl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("saving %q: %w", tl.Name, err)
	}
	return nil
}

func (s *Server) perspectiveParam(r *http.Request) (layout.Perspective, error) {
	v := r.URL.Query().Get("perspective")
	if v == "" {
		return s.perspective, nil
	}
	return layout.ParsePerspective(v)
}

var errBadRequest = errors.New("bad request")

func statusOf(err error) int {
	switch {
	case errors.Is(err, container.ErrTimelineNotFound), errors.Is(err, container.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, container.ErrNoActiveTimeline):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, container.ErrUnknownInteraction),
		errors.Is(err, container.ErrInvalidInteraction),
		errors.Is(err, layout.ErrUnknownPerspective),
		errors.Is(err, layout.ErrEventOutOfRange),
		errors.Is(err, model.ErrInvalidRange),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, model.ErrUnknownEventType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, span trace.Span, err error) {
	status := statusOf(err)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("server error: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
