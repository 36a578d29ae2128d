package models

// ExpiryBuckets groups pending invitations by how much lifetime remains.
type ExpiryBuckets struct {
	AlreadyExpired    int64 `json:"already_expired"`
	ExpiringToday     int64 `json:"expiring_today"`
	ExpiringThisWeek  int64 `json:"expiring_this_week"`
	ExpiringThisMonth int64 `json:"expiring_this_month"`
}
