package workshop

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

type vehicleForm struct {
	Registration string `form:"registration" validate:"required,max=20"`
	Make         string `form:"make" validate:"required,max=20"`
	Model        string `form:"model" validate:"required,max=20"`
	Colour       string `form:"colour" validate:"max=20"`
	Body         string `form:"body" validate:"max=255"`
	Energy       string `form:"energy" validate:"omitempty,oneof=E D EL"`
	Gearbox      string `form:"gearbox" validate:"omitempty,oneof=M A"`
	Year         string `form:"year"`
	Mileage      string `form:"mileage"`
	Doors        string `form:"doors"`
	Seats        string `form:"seats"`
}

type technicianForm struct {
	LastName   string `form:"last_name" validate:"required,max=255"`
	FirstName  string `form:"first_name" validate:"required,max=255"`
	Speciality string `form:"speciality" validate:"max=255"`
}

type repairForm struct {
	VehicleID     string `form:"vehicle_id" validate:"required"`
	TechnicianID  string `form:"technician_id"`
	Date          string `form:"date" validate:"required"`
	LabourMinutes string `form:"labour_minutes"`
	Subject       string `form:"subject" validate:"required"`
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

func vehicleFormFromRequest(r *http.Request) vehicleForm {
	return vehicleForm{
		Registration: strings.ToUpper(formValue(r, "registration")),
		Make:         formValue(r, "make"),
		Model:        formValue(r, "model"),
		Colour:       formValue(r, "colour"),
		Body:         formValue(r, "body"),
		Energy:       formValue(r, "energy"),
		Gearbox:      formValue(r, "gearbox"),
		Year:         formValue(r, "year"),
		Mileage:      formValue(r, "mileage"),
		Doors:        formValue(r, "doors"),
		Seats:        formValue(r, "seats"),
	}
}

func technicianFormFromRequest(r *http.Request) technicianForm {
	return technicianForm{
		LastName:   formValue(r, "last_name"),
		FirstName:  formValue(r, "first_name"),
		Speciality: formValue(r, "speciality"),
	}
}

func repairFormFromRequest(r *http.Request) repairForm {
	return repairForm{
		VehicleID:     formValue(r, "vehicle_id"),
		TechnicianID:  formValue(r, "technician_id"),
		Date:          formValue(r, "date"),
		LabourMinutes: formValue(r, "labour_minutes"),
		Subject:       formValue(r, "subject"),
	}
}

func (f vehicleForm) old() map[string]string {
	return map[string]string{
		"registration": f.Registration, "make": f.Make, "model": f.Model,
		"colour": f.Colour, "body": f.Body, "energy": f.Energy, "gearbox": f.Gearbox,
		"year": f.Year, "mileage": f.Mileage, "doors": f.Doors, "seats": f.Seats,
	}
}

func (f technicianForm) old() map[string]string {
	return map[string]string{"last_name": f.LastName, "first_name": f.FirstName, "speciality": f.Speciality}
}

func (f repairForm) old() map[string]string {
	return map[string]string{
		"vehicle_id": f.VehicleID, "technician_id": f.TechnicianID, "date": f.Date,
		"labour_minutes": f.LabourMinutes, "subject": f.Subject,
	}
}

// apply validates the form and maps it onto v. minYear differs between
// creation and update.
func (f vehicleForm) apply(v *Vehicle, minYear int, now time.Time) FieldErrors {
	errs := structErrors(f)
	maxYear := now.Year() + 1
	year := optionalInt(errs, "year", f.Year, minYear, maxYear)
	mileage := optionalInt(errs, "mileage", f.Mileage, 0, -1)
	doors := optionalInt(errs, "doors", f.Doors, 0, -1)
	seats := optionalInt(errs, "seats", f.Seats, 0, -1)
	if len(errs) > 0 {
		return errs
	}

	v.Registration = f.Registration
	v.Make = f.Make
	v.Model = f.Model
	v.Colour = f.Colour
	v.Body = f.Body
	v.Energy = f.Energy
	v.Gearbox = f.Gearbox
	v.Year = year
	v.Mileage = mileage
	v.Doors = doors
	v.Seats = seats
	return nil
}

func (f technicianForm) apply(t *Technician) FieldErrors {
	if errs := structErrors(f); len(errs) > 0 {
		return errs
	}
	t.LastName = f.LastName
	t.FirstName = f.FirstName
	t.Speciality = f.Speciality
	return nil
}

// apply checks formats only; the handler verifies that referenced
// records exist.
func (f repairForm) apply(rep *Repair) FieldErrors {
	errs := structErrors(f)

	vehicleID, err := strconv.ParseUint(f.VehicleID, 10, 64)
	if f.VehicleID != "" && err != nil {
		errs["vehicle_id"] = "The selected vehicle is invalid."
	}
	var technicianID *uint
	if f.TechnicianID != "" {
		id, err := strconv.ParseUint(f.TechnicianID, 10, 64)
		if err != nil {
			errs["technician_id"] = "The selected technician is invalid."
		} else {
			tid := uint(id)
			technicianID = &tid
		}
	}
	date, err := time.Parse(time.DateOnly, f.Date)
	if f.Date != "" && err != nil {
		errs["date"] = "The date is not a valid date."
	}
	labour := optionalInt(errs, "labour_minutes", f.LabourMinutes, 0, -1)
	if len(errs) > 0 {
		return errs
	}

	rep.VehicleID = uint(vehicleID)
	rep.TechnicianID = technicianID
	rep.Date = date
	rep.LabourMinutes = labour
	rep.Subject = f.Subject
	return nil
}

// optionalInt parses an optional integer field within [lo, hi]. A
// negative hi means unbounded.
func optionalInt(errs FieldErrors, field, raw string, lo, hi int) *int {
	if raw == "" {
		return nil
	}
	name := strings.ReplaceAll(field, "_", " ")
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		errs[field] = fmt.Sprintf("The %s must be an integer.", name)
	case n < lo:
		errs[field] = fmt.Sprintf("The %s must be at least %d.", name, lo)
	case hi >= 0 && n > hi:
		errs[field] = fmt.Sprintf("The %s may not be greater than %d.", name, hi)
	default:
		return &n
	}
	return nil
}

func structErrors(in any) FieldErrors {
	errs := FieldErrors{}
	err := validate.Struct(in)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs
	}
	for _, fe := range verrs {
		name := strings.ReplaceAll(fe.Field(), "_", " ")
		switch fe.Tag() {
		case "required":
			errs[fe.Field()] = fmt.Sprintf("The %s field is required.", name)
		case "max":
			errs[fe.Field()] = fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
		default:
			errs[fe.Field()] = fmt.Sprintf("The selected %s is invalid.", name)
		}
	}
	return errs
}

func vehicleOld(v *Vehicle) map[string]string {
	return map[string]string{
		"registration": v.Registration, "make": v.Make, "model": v.Model,
		"colour": v.Colour, "body": v.Body, "energy": v.Energy, "gearbox": v.Gearbox,
		"year": intString(v.Year), "mileage": intString(v.Mileage),
		"doors": intString(v.Doors), "seats": intString(v.Seats),
	}
}

func technicianOld(t *Technician) map[string]string {
	return map[string]string{"last_name": t.LastName, "first_name": t.FirstName, "speciality": t.Speciality}
}

func repairOld(r *Repair) map[string]string {
	old := map[string]string{
		"vehicle_id":     strconv.FormatUint(uint64(r.VehicleID), 10),
		"date":           r.Date.Format(time.DateOnly),
		"labour_minutes": intString(r.LabourMinutes),
		"subject":        r.Subject,
	}
	if r.TechnicianID != nil {
		old["technician_id"] = strconv.FormatUint(uint64(*r.TechnicianID), 10)
	}
	return old
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
