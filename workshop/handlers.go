package workshop

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/petruce/garage/session"
	"github.com/petruce/garage/web"
)

const latestRepairs = 5

// Handlers serves the dashboard and the vehicle, technician and repair
// resources.
type Handlers struct {
	Store    Store
	Sessions *session.Sessions
	Renderer *web.Renderer
	Now      func() time.Time
}

// FormData is the template data of create and edit pages.
type FormData struct {
	Heading     string
	Action      string
	Method      string
	Vehicles    []Vehicle
	Technicians []Technician
}

// Register mounts the resource routes on r behind protect.
func (h *Handlers) Register(r *mux.Router, protect mux.MiddlewareFunc) {
	resource(r, "/vehicles", protect, h.vehicleIndex, h.vehicleCreate, h.vehicleStore,
		h.vehicleShow, h.vehicleEdit, h.vehicleUpdate, h.vehicleDestroy)
	resource(r, "/technicians", protect, h.technicianIndex, h.technicianCreate, h.technicianStore,
		h.technicianShow, h.technicianEdit, h.technicianUpdate, h.technicianDestroy)
	resource(r, "/repairs", protect, h.repairIndex, h.repairCreate, h.repairStore,
		h.repairShow, h.repairEdit, h.repairUpdate, h.repairDestroy)
}

func resource(r *mux.Router, prefix string, protect mux.MiddlewareFunc, index, create, store, show, edit, update, destroy http.HandlerFunc) {
	s := r.PathPrefix(prefix).Subrouter()
	s.Use(protect)
	s.HandleFunc("", index).Methods(http.MethodGet)
	s.HandleFunc("", store).Methods(http.MethodPost)
	s.HandleFunc("/create", create).Methods(http.MethodGet)
	s.HandleFunc("/{id:[0-9]+}", show).Methods(http.MethodGet)
	s.HandleFunc("/{id:[0-9]+}/edit", edit).Methods(http.MethodGet)
	s.HandleFunc("/{id:[0-9]+}", update).Methods(http.MethodPut, http.MethodPatch)
	s.HandleFunc("/{id:[0-9]+}", destroy).Methods(http.MethodDelete)
}

// Home renders the dashboard.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context(), latestRepairs)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "home", h.Sessions.Page(r, "Dashboard", stats))
}

// NotFound renders the 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, http.StatusNotFound, "not_found", h.Sessions.Page(r, "Not found", nil))
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("workshop request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	h.Renderer.Render(w, http.StatusInternalServerError, "error", h.Sessions.Page(r, "Error", nil))
}

// fail renders 404 for missing records and 500 otherwise.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	h.serverError(w, r, err)
}

func (h *Handlers) back(w http.ResponseWriter, r *http.Request, url string, errs FieldErrors, old map[string]string) {
	h.Sessions.FlashErrors(r.Context(), errs, old)
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handlers) done(w http.ResponseWriter, r *http.Request, url, msg string) {
	h.Sessions.Flash(r.Context(), msg)
	http.Redirect(w, r, url, http.StatusFound)
}

// formPage renders a create or edit form, prefilling it from defaults
// unless the previous submission left old input.
func (h *Handlers) formPage(w http.ResponseWriter, r *http.Request, tmpl, title string, data FormData, defaults map[string]string) {
	page := h.Sessions.Page(r, title, data)
	if len(page.Old) == 0 && defaults != nil {
		page.Old = defaults
	}
	h.Renderer.Render(w, http.StatusOK, tmpl, page)
}

func routeID(r *http.Request) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return uint(id)
}

func idPath(prefix string, id uint) string {
	return prefix + "/" + strconv.FormatUint(uint64(id), 10)
}
