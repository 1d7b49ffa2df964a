package workshop_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petruce/garage/session"
	gormstore "github.com/petruce/garage/stores/gorm"
	"github.com/petruce/garage/web"
	"github.com/petruce/garage/workshop"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type client struct {
	t     *testing.T
	srv   *httptest.Server
	http  *http.Client
	store workshop.Store
}

type result struct {
	status   int
	location string
	body     string
}

func setup(t *testing.T) *client {
	t.Helper()
	db, err := gormstore.Open("sqlite", filepath.Join(t.TempDir(), "shop.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, gormstore.AutoMigrate(db))
	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	store := gormstore.NewWorkshopStore(db)
	sessions := session.New(session.Config{})
	h := &workshop.Handlers{
		Store:    store,
		Sessions: sessions,
		Renderer: renderer,
		Now:      func() time.Time { return fixedNow },
	}
	r := mux.NewRouter()
	r.HandleFunc("/", h.Home)
	h.Register(r, func(next http.Handler) http.Handler { return next })
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	srv := httptest.NewServer(sessions.LoadAndSave(r))
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	jar, _ := cookiejar.New(nil)
	return &client{
		t:     t,
		srv:   srv,
		store: store,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) send(method, path string, form url.Values) result {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.srv.URL+path, body)
	require.NoError(c.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return result{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(b)}
}

func vehicleForm(reg string) url.Values {
	return url.Values{
		"registration": {reg},
		"make":         {"Renault"},
		"model":        {"Clio"},
		"year":         {"2018"},
		"energy":       {"D"},
		"gearbox":      {"M"},
	}
}

func TestVehicleCreate(t *testing.T) {
	c := setup(t)

	res := c.send(http.MethodPost, "/vehicles", vehicleForm("ab-123-cd"))
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/vehicles", res.location)

	index := c.send(http.MethodGet, "/vehicles", nil)
	assert.Contains(t, index.body, "Vehicle added.")
	assert.Contains(t, index.body, "AB-123-CD")

	vehicles, err := c.store.ListVehicles(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Diesel", vehicles[0].EnergyLabel())
	assert.Equal(t, "Manual", vehicles[0].GearboxLabel())

	res = c.send(http.MethodPost, "/vehicles", vehicleForm("AB-123-CD"))
	assert.Equal(t, "/vehicles/create", res.location)
	form := c.send(http.MethodGet, "/vehicles/create", nil)
	assert.Contains(t, form.body, "The registration has already been taken.")
}

func TestVehicleValidation(t *testing.T) {
	tests := []struct {
		name string
		mod  func(url.Values)
		msg  string
	}{
		{"missing make", func(v url.Values) { v.Del("make") }, "The make field is required."},
		{"year too old", func(v url.Values) { v.Set("year", "1999") }, "The year must be at least 2000."},
		{"year in the future", func(v url.Values) { v.Set("year", "2027") }, "The year may not be greater than 2026."},
		{"bad energy", func(v url.Values) { v.Set("energy", "X") }, "The selected energy is invalid."},
		{"negative mileage", func(v url.Values) { v.Set("mileage", "-5") }, "The mileage must be at least 0."},
		{"non numeric doors", func(v url.Values) { v.Set("doors", "four") }, "The doors must be an integer."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setup(t)
			form := vehicleForm("ZZ-999-ZZ")
			tt.mod(form)
			res := c.send(http.MethodPost, "/vehicles", form)
			require.Equal(t, "/vehicles/create", res.location)
			page := c.send(http.MethodGet, "/vehicles/create", nil)
			assert.Contains(t, page.body, tt.msg)
			assert.Contains(t, page.body, `value="ZZ-999-ZZ"`, "old input is kept")

			vehicles, err := c.store.ListVehicles(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, vehicles)
		})
	}
}

func TestVehicleUpdateAllowsOlderYears(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	v := &workshop.Vehicle{Registration: "OLD-1", Make: "Citroen", Model: "DS"}
	require.NoError(t, c.store.CreateVehicle(ctx, v))

	form := vehicleForm("OLD-1")
	form.Set("year", "1965")
	res := c.send(http.MethodPut, "/vehicles/"+itoa(v.ID), form)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/vehicles", res.location)

	got, err := c.store.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Year)
	assert.Equal(t, 1965, *got.Year)
	assert.Equal(t, "Renault", got.Make)

	edit := c.send(http.MethodGet, "/vehicles/"+itoa(v.ID)+"/edit", nil)
	assert.Equal(t, http.StatusOK, edit.status)
	assert.Contains(t, edit.body, `value="1965"`)
	assert.Contains(t, edit.body, `name="_method" value="PUT"`)
}

func TestVehicleNotFound(t *testing.T) {
	c := setup(t)
	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/vehicles/42"},
		{http.MethodGet, "/vehicles/42/edit"},
		{http.MethodDelete, "/vehicles/42"},
		{http.MethodGet, "/technicians/42"},
		{http.MethodGet, "/repairs/42"},
	} {
		res := c.send(req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, res.status, "%s %s", req.method, req.path)
	}
}

func TestVehicleSearch(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	require.NoError(t, c.store.CreateVehicle(ctx, &workshop.Vehicle{Registration: "AA-1", Make: "Peugeot", Model: "208"}))
	require.NoError(t, c.store.CreateVehicle(ctx, &workshop.Vehicle{Registration: "BB-2", Make: "Toyota", Model: "Yaris"}))

	res := c.send(http.MethodGet, "/vehicles?search=Toyo", nil)
	assert.Contains(t, res.body, "BB-2")
	assert.NotContains(t, res.body, "AA-1")
}

func TestTechnicianLifecycle(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	res := c.send(http.MethodPost, "/technicians", url.Values{"first_name": {"Marie"}, "last_name": {"Curie"}})
	require.Equal(t, "/technicians", res.location)
	techs, err := c.store.ListTechnicians(ctx)
	require.NoError(t, err)
	require.Len(t, techs, 1)
	id := techs[0].ID

	res = c.send(http.MethodPost, "/technicians", url.Values{"first_name": {"Pierre"}})
	assert.Equal(t, "/technicians/create", res.location)

	res = c.send(http.MethodPatch, "/technicians/"+itoa(id), url.Values{
		"first_name": {"Marie"}, "last_name": {"Curie"}, "speciality": {"Electrics"},
	})
	require.Equal(t, "/technicians", res.location)
	got, err := c.store.GetTechnician(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Electrics", got.Speciality)

	res = c.send(http.MethodDelete, "/technicians/"+itoa(id), nil)
	require.Equal(t, "/technicians", res.location)
	_, err = c.store.GetTechnician(ctx, id)
	assert.ErrorIs(t, err, workshop.ErrNotFound)
}

func TestRepairLifecycle(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	v := &workshop.Vehicle{Registration: "RR-1", Make: "Fiat", Model: "500"}
	require.NoError(t, c.store.CreateVehicle(ctx, v))
	tech := &workshop.Technician{FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, c.store.CreateTechnician(ctx, tech))

	// Unknown references are field errors, not server errors.
	res := c.send(http.MethodPost, "/repairs", url.Values{
		"vehicle_id": {"999"}, "technician_id": {"998"}, "date": {"2025-05-30"}, "subject": {"Brakes"},
	})
	require.Equal(t, "/repairs/create", res.location)
	page := c.send(http.MethodGet, "/repairs/create", nil)
	assert.Contains(t, page.body, "The selected vehicle is invalid.")
	assert.Contains(t, page.body, "The selected technician is invalid.")

	res = c.send(http.MethodPost, "/repairs", url.Values{
		"vehicle_id": {itoa(v.ID)}, "technician_id": {itoa(tech.ID)}, "date": {"30/05/2025"}, "subject": {"Brakes"},
	})
	require.Equal(t, "/repairs/create", res.location)

	res = c.send(http.MethodPost, "/repairs", url.Values{
		"vehicle_id":     {itoa(v.ID)},
		"technician_id":  {itoa(tech.ID)},
		"date":           {"2025-05-30"},
		"labour_minutes": {"45"},
		"subject":        {"Brake pads"},
	})
	require.Equal(t, "/repairs", res.location)

	index := c.send(http.MethodGet, "/repairs", nil)
	assert.Contains(t, index.body, "Repair recorded.")
	assert.Contains(t, index.body, "30/05/2025")
	assert.Contains(t, index.body, "Ada Lovelace")

	home := c.send(http.MethodGet, "/", nil)
	assert.Contains(t, home.body, "Brake pads")

	repairs, err := c.store.ListRepairs(ctx)
	require.NoError(t, err)
	require.Len(t, repairs, 1)
	id := repairs[0].ID

	res = c.send(http.MethodPut, "/repairs/"+itoa(id), url.Values{
		"vehicle_id": {itoa(v.ID)}, "date": {"2025-05-31"}, "subject": {"Brake pads and discs"},
	})
	require.Equal(t, "/repairs", res.location)
	got, err := c.store.GetRepair(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.TechnicianID)
	assert.Equal(t, "Brake pads and discs", got.Subject)

	res = c.send(http.MethodDelete, "/repairs/"+itoa(id), nil)
	require.Equal(t, "/repairs", res.location)
	assert.Equal(t, http.StatusNotFound, c.send(http.MethodGet, "/repairs/"+itoa(id), nil).status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
