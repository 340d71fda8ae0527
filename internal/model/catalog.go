package model

import "time"

// Manufacturer is an aircraft manufacturer in the public catalog.
type Manufacturer struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Country     string    `json:"country" db:"country"`
	Description string    `json:"description" db:"description"`
	FoundedYear *int      `json:"foundedYear,omitempty" db:"founded_year"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Category groups aircraft by role (narrow-body, regional, cargo, ...).
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Aircraft is a single aircraft model entry.
type Aircraft struct {
	ID             int64     `json:"id" db:"id"`
	ManufacturerID int64     `json:"manufacturerId" db:"manufacturer_id"`
	CategoryID     int64     `json:"categoryId" db:"category_id"`
	ModelName      string    `json:"modelName" db:"model_name"`
	Description    string    `json:"description" db:"description"`
	YearIntroduced *int      `json:"yearIntroduced,omitempty" db:"year_introduced"`
	MaxPassengers  *int      `json:"maxPassengers,omitempty" db:"max_passengers"`
	CruiseSpeed    *float64  `json:"cruiseSpeed,omitempty" db:"cruise_speed"`
	MaxAltitude    *float64  `json:"maxAltitude,omitempty" db:"max_altitude"`
	RangeKm        *float64  `json:"range,omitempty" db:"range_km"`
	Engines        *int      `json:"engines,omitempty" db:"engines"`
	EngineType     string    `json:"engineType" db:"engine_type"`
	ImageURL       string    `json:"image" db:"image_url"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// AircraftFilter narrows a catalog listing.
type AircraftFilter struct {
	ManufacturerID int64
	CategoryID     int64
	Search         string
}
