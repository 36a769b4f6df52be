package sitecfg

import (
	stderrors "errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/domain/entity"
	"zonewatch/internal/domain/errors"
	"zonewatch/internal/geo"
)

func circleSub(radius float64) *entity.Subscription {
	center := orb.Point{-71.0995, 42.3876}

	return &entity.Subscription{Center: &center, Radius: &radius}
}

func TestRegistryFallback(t *testing.T) {
	t.Parallel()

	r := NewDefault()

	site, err := r.ByHostname("somerville.zonewatch.org")
	require.NoError(t, err)
	assert.Equal(t, "Somerville", site.Name())

	site, err = r.ByHostname("nowhere.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Somerville", site.Name())
}

func TestRegistryNoFallback(t *testing.T) {
	t.Parallel()

	r := NewRegistry(NewCambridge())

	_, err := r.ByHostname("nowhere.example.com")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSiteNotFound))
}

func TestSomervilleForcesRegion(t *testing.T) {
	t.Parallel()

	site := NewSomerville()
	sub := circleSub(geo.Feet(300).Meters())
	q := &entity.SubscriptionQuery{Kind: entity.QueryKindCircle}

	require.NoError(t, site.ValidateSubscriptionQuery(sub, q))
	assert.Equal(t, "Somerville, MA", sub.RegionName)
	assert.Equal(t, "Somerville, MA", q.RegionName)
}

func TestSomervilleRejectsForeignRegion(t *testing.T) {
	t.Parallel()

	site := NewSomerville()
	sub := circleSub(50)
	sub.RegionName = "Cambridge, MA"

	err := site.ValidateSubscriptionQuery(sub, &entity.SubscriptionQuery{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSomervilleRejectsBoxes(t *testing.T) {
	t.Parallel()

	site := NewSomerville()
	box := orb.Bound{Min: orb.Point{-71.11, 42.37}, Max: orb.Point{-71.07, 42.41}}
	sub := &entity.Subscription{Box: &box}

	err := site.ValidateSubscriptionQuery(sub, &entity.SubscriptionQuery{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSomervilleRadiusCap(t *testing.T) {
	t.Parallel()

	site := NewSomerville()
	maxRadius := site.MaxSubscriptionRadius()

	// Just under the half-meter tolerance passes.
	require.NoError(t, site.ValidateSubscriptionQuery(circleSub(maxRadius+0.49), &entity.SubscriptionQuery{}))

	// At or past the tolerance fails.
	err := site.ValidateSubscriptionQuery(circleSub(maxRadius+0.5), &entity.SubscriptionQuery{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestSomervilleSingleSubscription(t *testing.T) {
	t.Parallel()

	assert.False(t, NewSomerville().AllowMultipleSubscriptions())
	assert.True(t, NewCambridge().AllowMultipleSubscriptions())
}

func TestCambridgePermitsBoxes(t *testing.T) {
	t.Parallel()

	site := NewCambridge()
	box := orb.Bound{Min: orb.Point{-71.13, 42.36}, Max: orb.Point{-71.09, 42.40}}
	sub := &entity.Subscription{Box: &box}
	q := &entity.SubscriptionQuery{Kind: entity.QueryKindBox}

	require.NoError(t, site.ValidateSubscriptionQuery(sub, q))
	assert.Equal(t, "Cambridge, MA", sub.RegionName)
}
