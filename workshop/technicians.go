package workshop

import "net/http"

func (h *Handlers) technicianIndex(w http.ResponseWriter, r *http.Request) {
	techs, err := h.Store.ListTechnicians(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "technicians_index", h.Sessions.Page(r, "Technicians", techs))
}

func (h *Handlers) technicianCreate(w http.ResponseWriter, r *http.Request) {
	h.formPage(w, r, "technicians_form", "New technician",
		FormData{Heading: "New technician", Action: "/technicians"}, nil)
}

func (h *Handlers) technicianStore(w http.ResponseWriter, r *http.Request) {
	form := technicianFormFromRequest(r)
	var t Technician
	if errs := form.apply(&t); errs != nil {
		h.back(w, r, "/technicians/create", errs, form.old())
		return
	}
	if err := h.Store.CreateTechnician(r.Context(), &t); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.done(w, r, "/technicians", "Technician added.")
}

func (h *Handlers) technicianShow(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTechnician(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "technicians_show", h.Sessions.Page(r, t.FullName(), t))
}

func (h *Handlers) technicianEdit(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTechnician(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.formPage(w, r, "technicians_form", "Edit technician",
		FormData{Heading: "Edit " + t.FullName(), Action: idPath("/technicians", t.ID), Method: http.MethodPut},
		technicianOld(t))
}

func (h *Handlers) technicianUpdate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTechnician(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form := technicianFormFromRequest(r)
	if errs := form.apply(t); errs != nil {
		h.back(w, r, idPath("/technicians", t.ID)+"/edit", errs, form.old())
		return
	}
	if err := h.Store.UpdateTechnician(r.Context(), t); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.done(w, r, "/technicians", "Technician updated.")
}

func (h *Handlers) technicianDestroy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTechnician(r.Context(), routeID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, "/technicians", "Technician deleted.")
}
