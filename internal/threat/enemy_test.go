package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asafarditi/Battlator/internal/geo"
)

func testProjector(t *testing.T) *geo.Projector {
	t.Helper()
	p, err := geo.NewProjector(geo.DefaultProj4)
	require.NoError(t, err)
	return p
}

func TestNormalizeCanonicalCapabilities(t *testing.T) {
	proj := testProjector(t)
	loc := []geo.GeoPoint{{Lat: 39.7, Lng: -105.0}}

	cases := []struct {
		typ       EnemyType
		weapon    Weapon
		rangeM    float64
		potential float64
	}{
		{TypePerson, WeaponRifle, 100, 30 * 1.1},
		{TypeVehicle, WeaponLongRange, 1000, 50 * 2},
		{TypeTank, WeaponAntiTank, 10000, 100}, // 60*11 clamps to 100
	}
	for _, c := range cases {
		// The declared capability must be ignored for the basic types.
		e, err := Normalize(Report{
			ID:            "e1",
			Type:          c.typ,
			Location:      loc,
			Capability:    map[string]float64{"death-ray": 99999},
			RiskPotential: 9000,
		}, proj)
		require.NoError(t, err, c.typ)
		assert.Equal(t, map[Weapon]float64{c.weapon: c.rangeM}, e.Capability, c.typ)
		assert.Equal(t, c.rangeM, e.EffectiveRange, c.typ)
		assert.InDelta(t, c.potential, e.RiskPotential, 1e-9, c.typ)
	}
}

func TestNormalizeDeclaredCapabilityFiltered(t *testing.T) {
	proj := testProjector(t)
	e, err := Normalize(Report{
		ID:       "s1",
		Type:     TypeSniper,
		Location: []geo.GeoPoint{{Lat: 39.7, Lng: -105.0}},
		Capability: map[string]float64{
			"sniper-rifle": 55, // declared range is not trusted
		},
	}, proj)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, e.Capability[WeaponSniperRifle])
	assert.Equal(t, 1200.0, e.EffectiveRange)
	// 45 * (1 + 1200/1000) = 99
	assert.InDelta(t, 99.0, e.RiskPotential, 1e-9)
}

func TestNormalizeRejectsUnknownWeapon(t *testing.T) {
	proj := testProjector(t)
	_, err := Normalize(Report{
		ID:         "s1",
		Type:       TypeSniper,
		Location:   []geo.GeoPoint{{Lat: 39.7, Lng: -105.0}},
		Capability: map[string]float64{"orbital-laser": 1},
	}, proj)
	assert.ErrorIs(t, err, ErrUnknownWeapon)
}

func TestNormalizeRejectsUnknownType(t *testing.T) {
	proj := testProjector(t)
	_, err := Normalize(Report{
		ID:       "x",
		Type:     EnemyType("kraken"),
		Location: []geo.GeoPoint{{Lat: 39.7, Lng: -105.0}},
	}, proj)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestNormalizeRejectsEmptyLocation(t *testing.T) {
	proj := testProjector(t)
	_, err := Normalize(Report{ID: "x", Type: TypePerson}, proj)
	assert.ErrorIs(t, err, ErrNoLocation)
}

func TestNormalizeEmptyDeclaredCapabilityDefaults(t *testing.T) {
	proj := testProjector(t)
	e, err := Normalize(Report{
		ID:       "s1",
		Type:     TypeLauncher,
		Location: []geo.GeoPoint{{Lat: 39.7, Lng: -105.0}},
	}, proj)
	require.NoError(t, err)
	assert.Equal(t, weaponRanges[WeaponRifle], e.EffectiveRange)
}
