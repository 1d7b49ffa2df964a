package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petruce/garage/workshop"
)

// WorkshopStore implements workshop.Store using GORM
type WorkshopStore struct {
	db *gorm.DB
}

func NewWorkshopStore(db *gorm.DB) *WorkshopStore {
	return &WorkshopStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workshop.ErrNotFound
	}
	return err
}

func deleted(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workshop.ErrNotFound
	}
	return nil
}

// =============================================================================
// Vehicles
// =============================================================================

func (s *WorkshopStore) ListVehicles(ctx context.Context, search string) ([]workshop.Vehicle, error) {
	q := s.db.WithContext(ctx).Order("registration")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("registration LIKE ? OR make LIKE ?", like, like)
	}
	var out []workshop.Vehicle
	return out, q.Find(&out).Error
}

func (s *WorkshopStore) GetVehicle(ctx context.Context, id uint) (*workshop.Vehicle, error) {
	var v workshop.Vehicle
	if err := s.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (s *WorkshopStore) CreateVehicle(ctx context.Context, v *workshop.Vehicle) error {
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		if isDuplicate(err) {
			return workshop.ErrDuplicateRegistration
		}
		return err
	}
	return nil
}

func (s *WorkshopStore) UpdateVehicle(ctx context.Context, v *workshop.Vehicle) error {
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		if isDuplicate(err) {
			return workshop.ErrDuplicateRegistration
		}
		return err
	}
	return nil
}

// DeleteVehicle removes the vehicle and its repairs.
func (s *WorkshopStore) DeleteVehicle(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", id).Delete(&workshop.Repair{}).Error; err != nil {
			return err
		}
		return deleted(tx.Delete(&workshop.Vehicle{}, id))
	})
}

// =============================================================================
// Technicians
// =============================================================================

func (s *WorkshopStore) ListTechnicians(ctx context.Context) ([]workshop.Technician, error) {
	var out []workshop.Technician
	return out, s.db.WithContext(ctx).Order("last_name, first_name").Find(&out).Error
}

func (s *WorkshopStore) GetTechnician(ctx context.Context, id uint) (*workshop.Technician, error) {
	var t workshop.Technician
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *WorkshopStore) CreateTechnician(ctx context.Context, t *workshop.Technician) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *WorkshopStore) UpdateTechnician(ctx context.Context, t *workshop.Technician) error {
	return s.db.WithContext(ctx).Save(t).Error
}

// DeleteTechnician removes the technician and unassigns their repairs.
func (s *WorkshopStore) DeleteTechnician(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&workshop.Repair{}).Where("technician_id = ?", id).
			Update("technician_id", nil).Error; err != nil {
			return err
		}
		return deleted(tx.Delete(&workshop.Technician{}, id))
	})
}

// =============================================================================
// Repairs
// =============================================================================

func (s *WorkshopStore) ListRepairs(ctx context.Context) ([]workshop.Repair, error) {
	var out []workshop.Repair
	err := s.db.WithContext(ctx).
		Preload("Vehicle").Preload("Technician").
		Order("date DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (s *WorkshopStore) GetRepair(ctx context.Context, id uint) (*workshop.Repair, error) {
	var r workshop.Repair
	err := s.db.WithContext(ctx).Preload("Vehicle").Preload("Technician").First(&r, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *WorkshopStore) CreateRepair(ctx context.Context, r *workshop.Repair) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error
}

func (s *WorkshopStore) UpdateRepair(ctx context.Context, r *workshop.Repair) error {
	r.Vehicle = nil
	r.Technician = nil
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(r).Error
}

func (s *WorkshopStore) DeleteRepair(ctx context.Context, id uint) error {
	return deleted(s.db.WithContext(ctx).Delete(&workshop.Repair{}, id))
}

func (s *WorkshopStore) Stats(ctx context.Context, latest int) (*workshop.Stats, error) {
	db := s.db.WithContext(ctx)
	var st workshop.Stats
	if err := db.Model(&workshop.Vehicle{}).Count(&st.Vehicles).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&workshop.Technician{}).Count(&st.Technicians).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&workshop.Repair{}).Count(&st.Repairs).Error; err != nil {
		return nil, err
	}
	err := db.Preload("Vehicle").Order("date DESC, id DESC").Limit(latest).Find(&st.Latest).Error
	if err != nil {
		return nil, err
	}
	return &st, nil
}

var _ workshop.Store = (*WorkshopStore)(nil)
