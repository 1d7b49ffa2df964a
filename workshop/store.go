package workshop

import "context"

// Store persists workshop records. Lookups of missing records return
// ErrNotFound.
type Store interface {
	ListVehicles(ctx context.Context, search string) ([]Vehicle, error)
	GetVehicle(ctx context.Context, id uint) (*Vehicle, error)
	CreateVehicle(ctx context.Context, v *Vehicle) error
	UpdateVehicle(ctx context.Context, v *Vehicle) error
	DeleteVehicle(ctx context.Context, id uint) error

	ListTechnicians(ctx context.Context) ([]Technician, error)
	GetTechnician(ctx context.Context, id uint) (*Technician, error)
	CreateTechnician(ctx context.Context, t *Technician) error
	UpdateTechnician(ctx context.Context, t *Technician) error
	DeleteTechnician(ctx context.Context, id uint) error

	// ListRepairs returns repairs newest first with vehicle and
	// technician loaded.
	ListRepairs(ctx context.Context) ([]Repair, error)
	GetRepair(ctx context.Context, id uint) (*Repair, error)
	CreateRepair(ctx context.Context, r *Repair) error
	UpdateRepair(ctx context.Context, r *Repair) error
	DeleteRepair(ctx context.Context, id uint) error

	Stats(ctx context.Context, latest int) (*Stats, error)
}
