// Package sitecfg holds per-deployment policy for the sites the service
// runs under. Each site is keyed by hostname and decides what subscription
// queries its residents may create.
package sitecfg

import (
	"zonewatch/internal/domain/entity"
	"zonewatch/internal/domain/errors"
	"zonewatch/internal/geo"
)

// Site is the policy surface a deployment exposes for one municipality.
type Site interface {
	// Hostname is the canonical host the site is served from.
	Hostname() string
	// Name is the human-readable site name used in emails.
	Name() string
	// RegionName is the municipality scope queries default to, if any.
	RegionName() string
	// AllowMultipleSubscriptions reports whether one user may hold more
	// than one active subscription on this site.
	AllowMultipleSubscriptions() bool
	// MaxSubscriptionRadius is the site's radius cap in meters; 0 means
	// only the global clamp applies.
	MaxSubscriptionRadius() float64
	// ValidateSubscriptionQuery applies site policy to a subscription
	// before it is saved, mutating both as needed.
	ValidateSubscriptionQuery(sub *entity.Subscription, q *entity.SubscriptionQuery) error
}

// Registry maps hostnames to site policies.
type Registry struct {
	sites    map[string]Site
	fallback Site
}

// NewRegistry builds a registry over the given sites. The site registered
// under hostname "default" (via extra hostnames) answers for unknown hosts.
func NewRegistry(sites ...Site) *Registry {
	r := &Registry{sites: make(map[string]Site)}
	for _, s := range sites {
		r.sites[s.Hostname()] = s
	}

	return r
}

// RegisterAlias makes a site answer for an additional hostname. The alias
// "default" marks the fallback site.
func (r *Registry) RegisterAlias(hostname string, s Site) {
	if hostname == "default" {
		r.fallback = s
		return
	}
	r.sites[hostname] = s
}

// ByHostname returns the site serving the given hostname, falling back to
// the default site for unknown hosts.
func (r *Registry) ByHostname(hostname string) (Site, error) {
	if s, ok := r.sites[hostname]; ok {
		return s, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}

	return nil, errors.ErrSiteNotFound.WrapMessage(hostname)
}

// NewDefault builds the registry for the current deployments.
func NewDefault() *Registry {
	somerville := NewSomerville()
	cambridge := NewCambridge()
	base := NewBase("zonewatch.org", "Zonewatch")

	r := NewRegistry(somerville, cambridge, base)
	r.RegisterAlias("zonewatch.somervillema.gov", somerville)
	r.RegisterAlias("default", somerville)

	return r
}

// BaseSite is the permissive policy shared by sites without local rules.
type BaseSite struct {
	hostname   string
	name       string
	regionName string
}

// NewBase returns a site with no constraints beyond the global radius clamp.
func NewBase(hostname, name string) *BaseSite {
	return &BaseSite{hostname: hostname, name: name}
}

func (s *BaseSite) Hostname() string                 { return s.hostname }
func (s *BaseSite) Name() string                     { return s.name }
func (s *BaseSite) RegionName() string               { return s.regionName }
func (s *BaseSite) AllowMultipleSubscriptions() bool { return true }
func (s *BaseSite) MaxSubscriptionRadius() float64   { return 0 }

func (s *BaseSite) ValidateSubscriptionQuery(sub *entity.Subscription, q *entity.SubscriptionQuery) error {
	if sub.RegionName == "" && s.regionName != "" {
		sub.RegionName = s.regionName
		q.RegionName = s.regionName
	}

	return nil
}

// SomervilleSite restricts subscriptions to point queries of at most 300
// feet within Somerville, one active subscription per user.
type SomervilleSite struct {
	maxRadius float64
}

// NewSomerville returns the Somerville, MA site policy.
func NewSomerville() *SomervilleSite {
	return &SomervilleSite{maxRadius: geo.Feet(300).Meters()}
}

func (s *SomervilleSite) Hostname() string                 { return "somerville.zonewatch.org" }
func (s *SomervilleSite) Name() string                     { return "Somerville" }
func (s *SomervilleSite) RegionName() string               { return "Somerville, MA" }
func (s *SomervilleSite) AllowMultipleSubscriptions() bool { return false }
func (s *SomervilleSite) MaxSubscriptionRadius() float64   { return s.maxRadius }

func (s *SomervilleSite) ValidateSubscriptionQuery(sub *entity.Subscription, q *entity.SubscriptionQuery) error {
	if sub.RegionName != "" {
		if sub.RegionName != s.RegionName() {
			return errors.NewValidationError("subscriptions on this site are restricted to the Somerville area", "region_name")
		}
	} else {
		sub.RegionName = s.RegionName()
		q.RegionName = s.RegionName()
	}

	if sub.Box != nil {
		return errors.NewValidationError("region queries are not supported for the Somerville area", "box")
	}

	if sub.Center != nil && sub.Radius != nil {
		// Half-meter tolerance absorbs feet-to-meter rounding from clients.
		if *sub.Radius-s.maxRadius >= 0.5 {
			return errors.NewValidationError("queries of greater than 300 feet are not allowed", "r")
		}
	}

	return nil
}

// CambridgeSite serves Cambridge with permissive rules: box queries and
// multiple active subscriptions are allowed.
type CambridgeSite struct {
	BaseSite
	maxRadius float64
}

// NewCambridge returns the Cambridge, MA site policy.
func NewCambridge() *CambridgeSite {
	return &CambridgeSite{
		BaseSite: BaseSite{
			hostname:   "cambridge.zonewatch.org",
			name:       "Cambridge",
			regionName: "Cambridge, MA",
		},
		maxRadius: geo.Meters(2000).Meters(),
	}
}

func (s *CambridgeSite) MaxSubscriptionRadius() float64 { return s.maxRadius }
