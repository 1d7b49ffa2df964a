package workshop

import (
	"context"
	"errors"
	"net/http"
)

func (h *Handlers) repairIndex(w http.ResponseWriter, r *http.Request) {
	repairs, err := h.Store.ListRepairs(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "repairs_index", h.Sessions.Page(r, "Repairs", repairs))
}

func (h *Handlers) repairFormData(ctx context.Context, data FormData) (FormData, error) {
	vehicles, err := h.Store.ListVehicles(ctx, "")
	if err != nil {
		return data, err
	}
	techs, err := h.Store.ListTechnicians(ctx)
	if err != nil {
		return data, err
	}
	data.Vehicles = vehicles
	data.Technicians = techs
	return data, nil
}

func (h *Handlers) repairCreate(w http.ResponseWriter, r *http.Request) {
	data, err := h.repairFormData(r.Context(), FormData{Heading: "New repair", Action: "/repairs"})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.formPage(w, r, "repairs_form", "New repair", data, nil)
}

// checkReferences reports missing vehicle or technician records as field
// errors.
func (h *Handlers) checkReferences(ctx context.Context, rep *Repair) (FieldErrors, error) {
	errs := FieldErrors{}
	if _, err := h.Store.GetVehicle(ctx, rep.VehicleID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		errs["vehicle_id"] = "The selected vehicle is invalid."
	}
	if rep.TechnicianID != nil {
		if _, err := h.Store.GetTechnician(ctx, *rep.TechnicianID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			errs["technician_id"] = "The selected technician is invalid."
		}
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

func (h *Handlers) repairStore(w http.ResponseWriter, r *http.Request) {
	form := repairFormFromRequest(r)
	var rep Repair
	errs := form.apply(&rep)
	if errs == nil {
		var err error
		if errs, err = h.checkReferences(r.Context(), &rep); err != nil {
			h.serverError(w, r, err)
			return
		}
	}
	if errs != nil {
		h.back(w, r, "/repairs/create", errs, form.old())
		return
	}
	if err := h.Store.CreateRepair(r.Context(), &rep); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.done(w, r, "/repairs", "Repair recorded.")
}

func (h *Handlers) repairShow(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Store.GetRepair(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Renderer.Render(w, http.StatusOK, "repairs_show", h.Sessions.Page(r, "Repair", rep))
}

func (h *Handlers) repairEdit(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Store.GetRepair(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.repairFormData(r.Context(),
		FormData{Heading: "Edit repair", Action: idPath("/repairs", rep.ID), Method: http.MethodPut})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.formPage(w, r, "repairs_form", "Edit repair", data, repairOld(rep))
}

func (h *Handlers) repairUpdate(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Store.GetRepair(r.Context(), routeID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	form := repairFormFromRequest(r)
	errs := form.apply(rep)
	if errs == nil {
		if errs, err = h.checkReferences(r.Context(), rep); err != nil {
			h.serverError(w, r, err)
			return
		}
	}
	if errs != nil {
		h.back(w, r, idPath("/repairs", rep.ID)+"/edit", errs, form.old())
		return
	}
	if err := h.Store.UpdateRepair(r.Context(), rep); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.done(w, r, "/repairs", "Repair updated.")
}

func (h *Handlers) repairDestroy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRepair(r.Context(), routeID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, "/repairs", "Repair deleted.")
}
