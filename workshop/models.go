// Package workshop manages the garage's vehicles, technicians and repair
// records.
package workshop

import (
	"errors"
	"time"
)

var (
	ErrNotFound              = errors.New("workshop: record not found")
	ErrDuplicateRegistration = errors.New("workshop: registration already exists")
)

const (
	EnergyPetrol   = "E"
	EnergyDiesel   = "D"
	EnergyElectric = "EL"

	GearboxManual    = "M"
	GearboxAutomatic = "A"
)

var energyLabels = map[string]string{
	EnergyPetrol:   "Petrol",
	EnergyDiesel:   "Diesel",
	EnergyElectric: "Electric",
}

var gearboxLabels = map[string]string{
	GearboxManual:    "Manual",
	GearboxAutomatic: "Automatic",
}

type Vehicle struct {
	ID           uint   `gorm:"primaryKey"`
	Registration string `gorm:"size:20;uniqueIndex;not null"`
	Make         string `gorm:"size:20;not null"`
	Model        string `gorm:"size:20;not null"`
	Colour       string `gorm:"size:20"`
	Year         *int
	Mileage      *int
	Body         string `gorm:"size:255"`
	Energy       string `gorm:"size:2"`
	Gearbox      string `gorm:"size:1"`
	Doors        *int
	Seats        *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EnergyLabel returns the readable energy type, or the raw code when it
// is not a known one.
func (v Vehicle) EnergyLabel() string {
	if l, ok := energyLabels[v.Energy]; ok {
		return l
	}
	return v.Energy
}

func (v Vehicle) GearboxLabel() string {
	if l, ok := gearboxLabels[v.Gearbox]; ok {
		return l
	}
	return v.Gearbox
}

type Technician struct {
	ID         uint   `gorm:"primaryKey"`
	LastName   string `gorm:"size:255;not null"`
	FirstName  string `gorm:"size:255;not null"`
	Speciality string `gorm:"size:255"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t Technician) FullName() string {
	return t.FirstName + " " + t.LastName
}

type Repair struct {
	ID            uint        `gorm:"primaryKey"`
	VehicleID     uint        `gorm:"not null;index"`
	Vehicle       *Vehicle    `gorm:"constraint:OnDelete:CASCADE"`
	TechnicianID  *uint       `gorm:"index"`
	Technician    *Technician `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Date          time.Time   `gorm:"type:date;not null;index"`
	LabourMinutes *int
	Subject       string `gorm:"type:text;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Stats feeds the dashboard.
type Stats struct {
	Vehicles    int64
	Technicians int64
	Repairs     int64
	Latest      []Repair
}
