package gorm

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/petruce/garage"
	"github.com/petruce/garage/oauth2"
	"github.com/petruce/garage/workshop"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "garage.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := Open("sqlite", dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestUserStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(setupTestDB(t))

	u := &garage.User{Name: "Alice", Email: " Alice@Example.COM ", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := store.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Empty(t, got.GoogleID)

	got, err = store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, garage.ErrUserNotFound)
	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, garage.ErrUserNotFound)
}

func TestUserStoreUniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(setupTestDB(t))

	require.NoError(t, store.CreateUser(ctx, &garage.User{Name: "A", Email: "a@example.com", PasswordHash: "x"}))
	err := store.CreateUser(ctx, &garage.User{Name: "B", Email: "A@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, garage.ErrEmailTaken)
}

func TestUserStoreConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(setupTestDB(t))

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.CreateUser(ctx, &garage.User{Name: "Racer", Email: "race@example.com", PasswordHash: "x"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, garage.ErrEmailTaken)
	}
	assert.Equal(t, 1, created)
}

func TestUserStoreLinkProvider(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(setupTestDB(t))

	u := &garage.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))

	linked, err := store.LinkProvider(ctx, u.ID, oauth2.Google, "g-1", "https://img/g.png")
	require.NoError(t, err)
	assert.Equal(t, "g-1", linked.GoogleID)
	assert.Equal(t, "https://img/g.png", linked.Avatar)

	// A second link neither replaces the id nor the avatar.
	again, err := store.LinkProvider(ctx, u.ID, oauth2.Google, "g-2", "https://img/other.png")
	require.NoError(t, err)
	assert.Equal(t, "g-1", again.GoogleID)
	assert.Equal(t, "https://img/g.png", again.Avatar)

	// Linking another provider keeps the existing avatar.
	gh, err := store.LinkProvider(ctx, u.ID, oauth2.GitHub, "gh-1", "https://img/gh.png")
	require.NoError(t, err)
	assert.Equal(t, "gh-1", gh.GitHubID)
	assert.Equal(t, "g-1", gh.GoogleID)
	assert.Equal(t, "https://img/g.png", gh.Avatar)
	assert.Equal(t, "x", gh.PasswordHash)

	_, err = store.LinkProvider(ctx, u.ID, oauth2.Provider("apple"), "a-1", "")
	assert.ErrorIs(t, err, oauth2.ErrUnknownProvider)

	_, err = store.LinkProvider(ctx, "missing", oauth2.Google, "g-3", "")
	assert.ErrorIs(t, err, garage.ErrUserNotFound)
}

func TestUserStoreUpdatePassword(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(setupTestDB(t))

	u := &garage.User{Name: "Carol", Email: "carol@example.com", PasswordHash: "old"}
	require.NoError(t, store.CreateUser(ctx, u))
	require.NoError(t, store.UpdatePassword(ctx, u.ID, "new"))

	got, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)

	assert.ErrorIs(t, store.UpdatePassword(ctx, "missing", "x"), garage.ErrUserNotFound)
}

func intPtr(i int) *int { return &i }

func TestWorkshopStoreVehicles(t *testing.T) {
	ctx := context.Background()
	store := NewWorkshopStore(setupTestDB(t))

	clio := &workshop.Vehicle{Registration: "AB-123-CD", Make: "Renault", Model: "Clio", Year: intPtr(2019)}
	golf := &workshop.Vehicle{Registration: "EF-456-GH", Make: "Volkswagen", Model: "Golf"}
	require.NoError(t, store.CreateVehicle(ctx, clio))
	require.NoError(t, store.CreateVehicle(ctx, golf))
	assert.NotZero(t, clio.ID)

	err := store.CreateVehicle(ctx, &workshop.Vehicle{Registration: "AB-123-CD", Make: "Fiat", Model: "Panda"})
	assert.ErrorIs(t, err, workshop.ErrDuplicateRegistration)

	all, err := store.ListVehicles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := store.ListVehicles(ctx, "Volks")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, golf.ID, found[0].ID)

	found, err = store.ListVehicles(ctx, "123")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, clio.ID, found[0].ID)

	golf.Registration = "AB-123-CD"
	assert.ErrorIs(t, store.UpdateVehicle(ctx, golf), workshop.ErrDuplicateRegistration)

	clio.Mileage = intPtr(42000)
	require.NoError(t, store.UpdateVehicle(ctx, clio))
	got, err := store.GetVehicle(ctx, clio.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Mileage)
	assert.Equal(t, 42000, *got.Mileage)

	_, err = store.GetVehicle(ctx, 999)
	assert.ErrorIs(t, err, workshop.ErrNotFound)
	assert.ErrorIs(t, store.DeleteVehicle(ctx, 999), workshop.ErrNotFound)
}

func TestWorkshopStoreRepairs(t *testing.T) {
	ctx := context.Background()
	store := NewWorkshopStore(setupTestDB(t))

	v := &workshop.Vehicle{Registration: "AA-001-AA", Make: "Peugeot", Model: "208"}
	require.NoError(t, store.CreateVehicle(ctx, v))
	tech := &workshop.Technician{FirstName: "Jean", LastName: "Dupont"}
	require.NoError(t, store.CreateTechnician(ctx, tech))

	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	older := &workshop.Repair{VehicleID: v.ID, TechnicianID: &tech.ID, Date: day(1), Subject: "Oil change"}
	newer := &workshop.Repair{VehicleID: v.ID, Date: day(5), Subject: "Brakes", LabourMinutes: intPtr(90)}
	require.NoError(t, store.CreateRepair(ctx, older))
	require.NoError(t, store.CreateRepair(ctx, newer))

	repairs, err := store.ListRepairs(ctx)
	require.NoError(t, err)
	require.Len(t, repairs, 2)
	assert.Equal(t, "Brakes", repairs[0].Subject)
	require.NotNil(t, repairs[1].Vehicle)
	assert.Equal(t, "AA-001-AA", repairs[1].Vehicle.Registration)
	require.NotNil(t, repairs[1].Technician)
	assert.Equal(t, "Jean Dupont", repairs[1].Technician.FullName())

	got, err := store.GetRepair(ctx, older.ID)
	require.NoError(t, err)
	got.Subject = "Oil and filter"
	require.NoError(t, store.UpdateRepair(ctx, got))
	got, err = store.GetRepair(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oil and filter", got.Subject)

	stats, err := store.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Vehicles)
	assert.Equal(t, int64(1), stats.Technicians)
	assert.Equal(t, int64(2), stats.Repairs)
	require.Len(t, stats.Latest, 1)
	assert.Equal(t, newer.ID, stats.Latest[0].ID)

	// Deleting the technician unassigns the repair.
	require.NoError(t, store.DeleteTechnician(ctx, tech.ID))
	got, err = store.GetRepair(ctx, older.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TechnicianID)

	// Deleting the vehicle removes its repairs.
	require.NoError(t, store.DeleteVehicle(ctx, v.ID))
	repairs, err = store.ListRepairs(ctx)
	require.NoError(t, err)
	assert.Empty(t, repairs)

	assert.ErrorIs(t, store.DeleteRepair(ctx, older.ID), workshop.ErrNotFound)
}
