package domain

// Resource is a rentable equipment model with a finite number of units.
// CachedAvailable is a materialized view maintained by the capacity
// reconciler; it is never used to decide availability.
type Resource struct {
	ID              int32          `json:"id"`
	Name            string         `json:"name"`
	Category        string         `json:"category"`
	DailyRate       float64        `json:"dailyRate"`
	TotalUnits      int            `json:"totalUnits"`
	CachedAvailable int            `json:"cachedAvailable"`
	Status          ResourceStatus `json:"status"`
	Description     string         `json:"description,omitempty"`
	Specifications  string         `json:"specifications,omitempty"`
	Version         int64          `json:"version"`
}

// Offerable reports whether the resource may be shown for new reservations.
func (r *Resource) Offerable() bool {
	return r.Status == ResourceStatusActive && r.CachedAvailable > 0
}

// ClampUnits bounds n to [0, TotalUnits].
func (r *Resource) ClampUnits(n int) int {
	if n < 0 {
		return 0
	}
	if n > r.TotalUnits {
		return r.TotalUnits
	}
	return n
}
