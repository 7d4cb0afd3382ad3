// Package httpapi exposes the ledger over a JSON HTTP surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rentledger/internal/app"
	"rentledger/internal/report"
	"rentledger/internal/validate"
	"rentledger/pkg/domain"
)

// missingRef is rendered where a bill or tenant references a record that no
// longer exists.
const missingRef = "—"

// Server routes HTTP requests into the app layer.
type Server struct {
	app     *app.App
	logger  *zap.Logger
	metrics http.Handler
	router  chi.Router
}

// Options carries optional server collaborators.
type Options struct {
	Logger *zap.Logger
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

// NewServer builds the router.
func NewServer(a *app.App, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{app: a, logger: opts.Logger, metrics: opts.Metrics}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignUp)
		r.Post("/signin", s.handleSignIn)
		r.Post("/signout", s.handleSignOut)
		r.Get("/session", s.handleSession)
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", s.handleListRooms)
		r.Post("/", s.handleCreateRoom)
		r.Get("/available", s.handleAvailableRooms)
		r.Put("/{id}", s.handleUpdateRoom)
		r.Delete("/{id}", s.handleDeleteRoom)
	})

	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", s.handleListTenants)
		r.Post("/", s.handleCreateTenant)
		r.Put("/{id}", s.handleUpdateTenant)
		r.Delete("/{id}", s.handleDeleteTenant)
		r.Post("/{id}/room", s.handleAssignRoom)
	})

	r.Route("/bills", func(r chi.Router) {
		r.Get("/", s.handleListBills)
		r.Post("/", s.handleCreateBill)
		r.Put("/{id}", s.handleUpdateBill)
		r.Delete("/{id}", s.handleDeleteBill)
		r.Post("/{id}/toggle", s.handleToggleBill)
	})

	r.Get("/dashboard", s.handleDashboard)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps domain failures onto HTTP statuses: missing records to 404,
// rule violations to 409, unauthenticated access to 401, the rest to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var notFound domain.ErrNotFound
	var violation domain.RuleViolationError
	switch {
	case errors.Is(err, app.ErrNotSignedIn):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &violation):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func (s *Server) writeValidation(w http.ResponseWriter, errs validate.Errors) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{Fields: errs})
}

func decode(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.app.SignUp(r.Context(), c.Email, c.Password); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}
	s.handleSession(w, r)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	if err := s.app.SignIn(r.Context(), c.Email, c.Password); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}
	s.handleSession(w, r)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.app.SignOut(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleSession(w, r)
}

type sessionView struct {
	State string `json:"state"`
	Email string `json:"email,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.app.Session().Session()
	view := sessionView{State: string(sess.State)}
	if sess.User != nil {
		view.Email = sess.User.Email
	}
	writeJSON(w, http.StatusOK, view)
}

type roomView struct {
	domain.Room
	TenantName string `json:"tenant_name,omitempty"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	tenants := s.app.Tenants()
	byRoom := make(map[string]string, len(tenants))
	for _, t := range tenants {
		if t.RoomID != "" {
			byRoom[t.RoomID] = t.Name
		}
	}
	rooms := s.app.Rooms()
	out := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomView{Room: room, TenantName: byRoom[room.ID]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var d validate.RoomDraft
	if err := decode(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	room, errs, err := s.app.CreateRoom(r.Context(), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !errs.Valid() {
		s.writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var d validate.RoomDraft
	if err := decode(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	room, errs, err := s.app.UpdateRoom(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !errs.Valid() {
		s.writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAvailableRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.app.AvailableRooms(r.URL.Query().Get("exclude_tenant"))
	writeJSON(w, http.StatusOK, rooms)
}

type tenantView struct {
	domain.Tenant
	RoomName string `json:"room_name"`
}

func (s *Server) handleListTenants(w http.ResponseWriter, _ *http.Request) {
	rooms := s.app.Rooms()
	names := make(map[string]string, len(rooms))
	for _, room := range rooms {
		names[room.ID] = room.Name
	}
	tenants := s.app.Tenants()
	out := make([]tenantView, 0, len(tenants))
	for _, t := range tenants {
		view := tenantView{Tenant: t, RoomName: missingRef}
		if name, ok := names[t.RoomID]; ok {
			view.RoomName = name
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var d validate.TenantDraft
	if err := decode(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	tenant, errs, err := s.app.CreateTenant(r.Context(), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !errs.Valid() {
		s.writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var d validate.TenantDraft
	if err := decode(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	tenant, errs, err := s.app.UpdateTenant(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !errs.Valid() {
		s.writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteTenant(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomID string `json:"room_id"`
	}
	if err := decode(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	tenant, err := s.app.AssignTenantRoom(r.Context(), chi.URLParam(r, "id"), body.RoomID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

type billView struct {
	domain.Bill
	TenantName string `json:"tenant_name"`
}

func (s *Server) billViews(bills []domain.Bill) []billView {
	tenants := s.app.Tenants()
	names := make(map[string]string, len(tenants))
	for _, t := range tenants {
		names[t.ID] = t.Name
	}
	out := make([]billView, 0, len(bills))
	for _, b := range bills {
		view := billView{Bill: b, TenantName: missingRef}
		if name, ok := names[b.TenantID]; ok {
			view.TenantName = name
		}
		out = append(out, view)
	}
	return out
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	status := report.StatusFilter(r.URL.Query().Get("status"))
	if status == "" {
		status = report.StatusAll
	}
	bills := s.app.FilteredBills(status, r.URL.Query().Get("tenant_id"))
	writeJSON(w, http.StatusOK, s.billViews(bills))
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var d validate.BillDraft
	if err := decode(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	bill, errs, err := s.app.CreateBill(r.Context(), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !errs.Valid() {
		s.writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var d validate.BillDraft
	if err := decode(r, &d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	bill, errs, err := s.app.UpdateBill(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !errs.Valid() {
		s.writeValidation(w, errs)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteBill(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.app.ToggleBillPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Dashboard())
}
