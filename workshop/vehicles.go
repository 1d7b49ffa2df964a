package workshop

import (
	"errors"
	"net/http"
)

const (
	minYearCreate = 2000
	minYearUpdate = 1900
)

func (h *Handlers) vehicleIndex(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	vehicles, err := h.Store.ListVehicles(r.Context(), search)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	page := h.Sessions.Page(r, "Vehicles", vehicles)
	page.Old = map[string]string{"search": search}
	h.Renderer.Render(w, http.StatusOK, "vehicles_index", page)
}

func (h *Handlers) vehicleCreate(w http.ResponseWriter, r *http.Request) {
	h.formPage(w, r, "vehicles_form", "New vehicle",
		FormData{Heading: "New vehicle", Action: "/vehicles"}, nil)
}

func (h *Handlers) vehicleStore(w http.ResponseWriter, r *http.Request) {
	form := vehicleFormFromRequest(r)
	var v Vehicle
	if errs := form.apply(&v, minYearCreate, h.now()); errs != nil {
		h.back(w, r, "/vehicles/create", errs, form.old())
		return
	}
	if err := h.Store.CreateVehicle(r.Context(), &v); err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			h.back(w, r, "/vehicles/create", FieldErrors{"registration": "The registration has already been taken."}, form.old())
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.done(w, r, "/vehicles", "Vehicle added.")
}

func (h *Handlers) vehicleShow(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.GetVehicle(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "vehicles_show", h.Sessions.Page(r, v.Registration, v))
}

func (h *Handlers) vehicleEdit(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.GetVehicle(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.formPage(w, r, "vehicles_form", "Edit vehicle",
		FormData{Heading: "Edit " + v.Registration, Action: idPath("/vehicles", v.ID), Method: http.MethodPut},
		vehicleOld(v))
}

func (h *Handlers) vehicleUpdate(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.GetVehicle(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form := vehicleFormFromRequest(r)
	editURL := idPath("/vehicles", v.ID) + "/edit"
	if errs := form.apply(v, minYearUpdate, h.now()); errs != nil {
		h.back(w, r, editURL, errs, form.old())
		return
	}
	if err := h.Store.UpdateVehicle(r.Context(), v); err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			h.back(w, r, editURL, FieldErrors{"registration": "The registration has already been taken."}, form.old())
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.done(w, r, "/vehicles", "Vehicle updated.")
}

func (h *Handlers) vehicleDestroy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteVehicle(r.Context(), routeID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, "/vehicles", "Vehicle deleted.")
}
