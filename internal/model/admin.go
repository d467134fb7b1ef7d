package model

// SummaryCounts are the headline numbers of the admin dashboard.
type SummaryCounts struct {
	Providers        int64 `db:"providers" json:"providers"`
	PendingProviders int64 `db:"pending_providers" json:"pending_providers"`
	Clinics          int64 `db:"clinics" json:"clinics"`
	ActiveServices   int64 `db:"active_services" json:"active_services"`
	Bookings         int64 `db:"bookings" json:"bookings"`
}

// ActivityItem is one anonymized entry of the recent bookings feed.
type ActivityItem struct {
	BookingID    string        `json:"booking_id"`
	Patient      string        `json:"patient"`
	ProviderName string        `json:"provider_name"`
	ServiceType  string        `json:"service_type"`
	Date         string        `json:"date"`
	Time         string        `json:"time"`
	Status       BookingStatus `json:"status"`
}

type AdminSummary struct {
	Counts         SummaryCounts  `json:"counts"`
	RecentActivity []ActivityItem `json:"recent_activity"`
	Clinics        []ClinicRollup `json:"clinics"`
}
