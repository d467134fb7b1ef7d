package model

// Clinic is a physical practice location, unique by slug.
type Clinic struct {
	Base
	Slug    string `db:"slug" json:"slug"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
	Island  string `db:"island" json:"island"`
	Phone   string `db:"phone" json:"phone"`
}

// ClinicRollup aggregates activity for one clinic in the admin views.
type ClinicRollup struct {
	ClinicID  string `db:"clinic_id" json:"clinic_id"`
	Name      string `db:"name" json:"name"`
	Providers int64  `db:"providers" json:"providers"`
	Services  int64  `db:"services" json:"services"`
	Bookings  int64  `db:"bookings" json:"bookings"`
}
