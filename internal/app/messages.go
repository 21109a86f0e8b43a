package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/compass_nav/internal/geomath"
	"github.com/relabs-tech/compass_nav/internal/nav"
	"github.com/relabs-tech/compass_nav/internal/orientation"
)

// ReadingMessage is the payload published on the reading topic. Device is
// the fix the distance was measured from, absent until one arrives.
// Attitude is in degrees.
type ReadingMessage struct {
	nav.Reading
	Target   geomath.Coordinate      `json:"target"`
	Device   *geomath.Coordinate     `json:"device,omitempty"`
	Attitude orientation.Orientation `json:"attitude"`
	Time     time.Time               `json:"time"`
}

// TargetRequest changes the navigation target. A missing field keeps the
// current value.
type TargetRequest struct {
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// Apply merges the request over current. The result is not clamped.
func (r TargetRequest) Apply(current geomath.Coordinate) (geomath.Coordinate, error) {
	next := current
	if r.Lat != nil {
		next.Latitude = *r.Lat
	}
	if r.Lon != nil {
		next.Longitude = *r.Lon
	}
	if !next.Finite() {
		return current, nav.ErrInvalidTarget
	}
	return next, nil
}

// formatReading renders one reading the way the compass screen shows it.
func formatReading(r nav.Reading) string {
	return fmt.Sprintf("[NAV] north=%6.1f° heading=%6.1f° Distance: ~%.0f m",
		r.NorthAzimuthDeg, r.HeadingDeg, r.DistanceM)
}
