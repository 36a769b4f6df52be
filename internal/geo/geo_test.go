package geo

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		meters  float64
		wantErr bool
	}{
		{name: "bare number is meters", input: "300", meters: 300},
		{name: "explicit meters", input: "300m", meters: 300},
		{name: "kilometers", input: "1.5 km", meters: 1500},
		{name: "feet", input: "300ft", meters: 91.44},
		{name: "yards", input: "100 yd", meters: 91.44},
		{name: "miles", input: "2mi", meters: 3218.688},
		{name: "fractional", input: "0.5", meters: 0.5},
		{name: "trailing space", input: "250 m ", meters: 250},
		{name: "negative", input: "-5", wantErr: true},
		{name: "unknown unit", input: "10 furlongs", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := ParseDistance(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.meters, d.Meters(), 1e-9)
		})
	}
}

func TestDistanceConversions(t *testing.T) {
	t.Parallel()

	d := Feet(300)
	assert.InDelta(t, 91.44, d.Meters(), 1e-9)
	assert.InDelta(t, 300, d.Feet(), 1e-9)

	km := Meters(1609.344)
	assert.InDelta(t, 1.0, km.Miles(), 1e-9)
	assert.InDelta(t, 1.609344, km.Kilometers(), 1e-9)
}

func TestBoundsFromBoxRoundTrip(t *testing.T) {
	t.Parallel()

	bound, err := BoundsFromBox("42.37,-71.11,42.41,-71.07")
	require.NoError(t, err)

	assert.Equal(t, orb.Point{-71.11, 42.37}, bound.Min)
	assert.Equal(t, orb.Point{-71.07, 42.41}, bound.Max)

	encoded := fmt.Sprintf("%g,%g,%g,%g", bound.Min.Y(), bound.Min.X(), bound.Max.Y(), bound.Max.X())
	assert.Equal(t, "42.37,-71.11,42.41,-71.07", encoded)
}

func TestBoundsFromBoxErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "1,2,3", "a,b,c,d", "1,2,3,4,5"} {
		_, err := BoundsFromBox(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestPointFromString(t *testing.T) {
	t.Parallel()

	pt, err := PointFromString("42.39,-71.09")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{-71.09, 42.39}, pt)

	_, err = PointFromString("not-a-point")
	assert.Error(t, err)
}

func TestPrettify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `42° 23' 24.00" N`, PrettifyLat(42.39))
	assert.Equal(t, `71° 5' 24.00" W`, PrettifyLng(-71.09))
	assert.Equal(t, `0° 0' 0.00" N`, PrettifyLat(0))
}

func TestAddParams(t *testing.T) {
	t.Parallel()

	out, err := AddParams("https://example.com/manage?token=old&uid=1",
		map[string]string{"token": "new"}, []string{"uid"})
	require.NoError(t, err)
	assert.Contains(t, out, "token=new")
	assert.NotContains(t, out, "uid=")
}

func TestDiscPolygonArea(t *testing.T) {
	t.Parallel()

	// A 300 m disc at this latitude spans roughly 300/111000 degrees; the
	// polygon approximation should come within a percent of pi*r^2.
	radius := 300.0
	disc := DiscPolygon(orb.Point{-71.09, 42.39}, radius)

	rDeg := radius / 111000.0
	want := math.Pi * rDeg * rDeg
	assert.InEpsilon(t, want, Area(disc), 0.01)
}

func TestOverlapAreaNested(t *testing.T) {
	t.Parallel()

	outer := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 4}}.ToPolygon()
	inner := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}.ToPolygon()

	assert.InDelta(t, 4.0, OverlapArea(outer, inner), 1e-9)
	assert.InDelta(t, 4.0, OverlapArea(inner, outer), 1e-9)
}

func TestOverlapAreaPartial(t *testing.T) {
	t.Parallel()

	a := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}}.ToPolygon()
	b := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}.ToPolygon()

	assert.InDelta(t, 1.0, OverlapArea(a, b), 1e-9)
}

func TestOverlapAreaDisjoint(t *testing.T) {
	t.Parallel()

	a := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}.ToPolygon()
	b := orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{3, 3}}.ToPolygon()

	assert.Zero(t, OverlapArea(a, b))
}
