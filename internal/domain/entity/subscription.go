package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"zonewatch/internal/domain/errors"
	"zonewatch/internal/geo"
)

// Subscription is a saved alert query owned by a user. The search area is
// either a bounding box or a center point with a radius in meters; both may
// be absent for a region-wide subscription. Active is nil until the user
// confirms via an emailed link, and holds the confirmation time afterwards
// (zeroed again on deactivation by setting Active back to nil).
type Subscription struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Created      time.Time
	Updated      time.Time
	Active       *time.Time // Confirmation time; nil while pending or deactivated.
	LastNotified *time.Time // When a digest was last sent for this subscription.

	Box           *orb.Bound // Rectangular search area, if any.
	Center        *orb.Point // Center of a radius search, if any.
	Radius        *float64   // Radius in meters around Center.
	Address       string     // Geocoded description of Center, if resolved.
	RegionName    string     // Municipality scope, e.g. "Somerville, MA".
	SiteName      string     // Hostname of the site the subscription was created on.
	IncludeEvents bool       // Whether digests should also cover public meetings.

	Query *SubscriptionQuery // Snapshot of the validated query parameters.
}

// IsActive reports whether the subscription has been confirmed and not
// since deactivated.
func (s *Subscription) IsActive() bool {
	return s.Active != nil
}

// Validate checks structural consistency of the spatial fields: center and
// radius must be set together, and every subscription needs either a circle
// or a box. A query carrying both is rejected outright rather than letting
// the box silently win over the circle.
func (s *Subscription) Validate() error {
	if (s.Center != nil) != (s.Radius != nil) {
		return errors.NewValidationError("center and radius must be set together", "center", "radius")
	}
	if s.Center == nil && s.Box == nil {
		return errors.NewValidationError("must have either a circle or box set", "center", "radius")
	}
	if s.Box != nil && s.Center != nil {
		return errors.NewValidationError("cannot have both a circle and a box set", "box", "center")
	}
	if s.Radius != nil && *s.Radius <= 0 {
		return errors.NewValidationError("radius must be positive", "r")
	}

	return nil
}

// Shape returns the subscription's search area as a polygon, or nil when
// the subscription has no spatial component. Radius searches are rendered
// as a regular polygon approximating the disc.
func (s *Subscription) Shape() orb.Polygon {
	switch {
	case s.Box != nil:
		return s.Box.ToPolygon()
	case s.Center != nil && s.Radius != nil:
		return geo.DiscPolygon(*s.Center, *s.Radius)
	default:
		return nil
	}
}

// Overlap measures how much of two subscriptions' areas coincide, on a 0..1
// scale: twice the intersection area over the sum of the two areas. When
// exactly one side has a shape the overlap is 0. When neither has a shape
// there is nothing to compare and ok is false.
func (s *Subscription) Overlap(other *Subscription) (float64, bool) {
	a, b := s.Shape(), other.Shape()

	switch {
	case a == nil && b == nil:
		return 0, false
	case a == nil || b == nil:
		return 0, true
	}

	areaA, areaB := geo.Area(a), geo.Area(b)
	if areaA+areaB == 0 {
		return 0, true
	}

	return 2 * geo.OverlapArea(a, b) / (areaA + areaB), true
}

// Similarity scores how alike two subscriptions are, on a 0..1 scale.
// Subscriptions scoped to different regions never match. Otherwise the
// spatial overlap decides; when neither side has a shape, equal geocoded
// addresses count as identical, both-empty included. ok is false when no
// basis for comparison exists.
func (s *Subscription) Similarity(other *Subscription) (float64, bool) {
	if s.RegionName != other.RegionName {
		return 0, true
	}

	if overlap, ok := s.Overlap(other); ok {
		return overlap, true
	}

	if s.Address == other.Address {
		return 1, true
	}

	return 0, false
}

// MostSimilar returns the candidate with the highest similarity to s at or
// above minScore. Ties go to the later candidate in the slice.
func (s *Subscription) MostSimilar(candidates []*Subscription, minScore float64) (*Subscription, float64) {
	var (
		best      *Subscription
		bestScore float64
	)

	for _, c := range candidates {
		score, ok := s.Similarity(c)
		if !ok || score < minScore {
			continue
		}
		if best == nil || score >= bestScore {
			best = c
			bestScore = score
		}
	}

	return best, bestScore
}

// UpdatesStartDate returns the beginning of the window a digest for this
// subscription should cover: the later of when it was last notified (or
// created) and when it was confirmed, so updates predating confirmation
// are never reported.
func (s *Subscription) UpdatesStartDate(now time.Time) time.Time {
	start := now
	switch {
	case s.LastNotified != nil:
		start = *s.LastNotified
	case !s.Created.IsZero():
		start = s.Created
	}

	active := now
	if s.Active != nil {
		active = *s.Active
	}
	if active.After(start) {
		return active
	}

	return start
}
