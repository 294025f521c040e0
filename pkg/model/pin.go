package model

// Pin represents a single free-stuff posting on the map.
// Pins are produced by the backend and treated as opaque payload by the
// area cache; only UserID is inspected (for blocklist filtering).
type Pin struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Address    string `json:"address"`
	Link       string `json:"link"`
	Status     string `json:"status"`
	Category   string `json:"category"`
	TimePosted string `json:"time_posted"`
	UserID     string `json:"user_id"`

	// Coordinates
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DisplayName returns the best available label for the pin.
// Priority: Title > Address > ID
func (p *Pin) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	if p.Address != "" {
		return p.Address
	}
	return p.ID
}
