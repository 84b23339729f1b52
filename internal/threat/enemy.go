// Package threat turns enemy reports into threat polygons with a discrete
// risk level and maintains the polygon cost overlay on the grid.
package threat

import (
	"errors"
	"fmt"
	"math"

	"github.com/asafarditi/Battlator/internal/geo"
)

// EnemyType is the closed set of unit types the engine understands.
type EnemyType string

const (
	TypePerson    EnemyType = "person"
	TypeVehicle   EnemyType = "vehicle"
	TypeTank      EnemyType = "tank"
	TypeSniper    EnemyType = "sniper"
	TypeLauncher  EnemyType = "launcher"
	TypeInfantry  EnemyType = "infantry"
	TypeArtillery EnemyType = "artillery"
)

// Weapon names the known-weapons table keys.
type Weapon string

const (
	WeaponRifle        Weapon = "rifle"
	WeaponAssaultRifle Weapon = "assault-rifle"
	WeaponMachineGun   Weapon = "machine-gun"
	WeaponSniperRifle  Weapon = "sniper-rifle"
	WeaponRPG          Weapon = "rpg"
	WeaponLongRange    Weapon = "long-range"
	WeaponAntiTank     Weapon = "anti-tank"
	WeaponMediumMortar Weapon = "medium-mortar"
)

// weaponRanges is the fixed effective-range table, meters. Declared ranges on
// a report are never trusted; lookups go through this table.
var weaponRanges = map[Weapon]float64{
	WeaponRifle:        100,
	WeaponAssaultRifle: 500,
	WeaponMachineGun:   800,
	WeaponSniperRifle:  1200,
	WeaponRPG:          700,
	WeaponLongRange:    1000,
	WeaponAntiTank:     10000,
	WeaponMediumMortar: 5600,
}

// canonicalCapability overrides whatever a client declared for the basic unit
// types. Other types keep their declared weapons, each of which must be in the
// range table.
var canonicalCapability = map[EnemyType][]Weapon{
	TypePerson:  {WeaponRifle},
	TypeVehicle: {WeaponLongRange},
	TypeTank:    {WeaponAntiTank},
}

// baseTypeRisk feeds the risk-potential derivation, one entry per type.
var baseTypeRisk = map[EnemyType]float64{
	TypePerson:    30,
	TypeInfantry:  35,
	TypeSniper:    45,
	TypeVehicle:   50,
	TypeTank:      60,
	TypeArtillery: 65,
	TypeLauncher:  70,
}

var (
	// ErrUnknownType rejects reports whose type is outside the closed set.
	ErrUnknownType = errors.New("unknown enemy type")
	// ErrUnknownWeapon rejects declared weapons missing from the range table.
	ErrUnknownWeapon = errors.New("unknown weapon")
	// ErrNoLocation rejects reports with an empty location list.
	ErrNoLocation = errors.New("enemy has no location")
)

// Report is an enemy observation as received from a client. Capability and
// risk potential are advisory only; admission derives its own.
type Report struct {
	ID            string             `json:"id"`
	Type          EnemyType          `json:"type"`
	Location      []geo.GeoPoint     `json:"location"`
	Capability    map[string]float64 `json:"capability"`
	RiskPotential float64            `json:"risk_potential"`
}

// Enemy is an admitted enemy with derived fields in place of client values.
type Enemy struct {
	ID             string
	Type           EnemyType
	Locations      []geo.MetricPoint
	Capability     map[Weapon]float64
	EffectiveRange float64
	RiskPotential  float64
}

// Normalize admits a report: it overrides the capability with the canonical
// one for the type (or looks a declared capability up in the weapon table,
// rejecting the report with ErrUnknownWeapon if a weapon is missing), derives the effective range as the maximum table range, and derives
// the risk potential from the type's base risk scaled by range.
func Normalize(r Report, proj *geo.Projector) (*Enemy, error) {
	if _, ok := baseTypeRisk[r.Type]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
	if len(r.Location) == 0 {
		return nil, ErrNoLocation
	}

	capability := map[Weapon]float64{}
	if canonical, ok := canonicalCapability[r.Type]; ok {
		for _, w := range canonical {
			capability[w] = weaponRanges[w]
		}
	} else {
		for name := range r.Capability {
			w := Weapon(name)
			rng, known := weaponRanges[w]
			if !known {
				return nil, fmt.Errorf("%w: %q", ErrUnknownWeapon, name)
			}
			capability[w] = rng
		}
		if len(capability) == 0 {
			// A typed unit with nothing declared still threatens at the
			// canonical person range.
			capability[WeaponRifle] = weaponRanges[WeaponRifle]
		}
	}

	effective := 0.0
	for _, rng := range capability {
		effective = math.Max(effective, rng)
	}

	risk := baseTypeRisk[r.Type] * (1 + effective/1000)
	risk = math.Min(100, math.Max(0, risk))

	locations := make([]geo.MetricPoint, 0, len(r.Location))
	for _, g := range r.Location {
		m, err := proj.ToMetric(g)
		if err != nil {
			return nil, fmt.Errorf("threat: projecting enemy location: %w", err)
		}
		locations = append(locations, m)
	}

	return &Enemy{
		ID:             r.ID,
		Type:           r.Type,
		Locations:      locations,
		Capability:     capability,
		EffectiveRange: effective,
		RiskPotential:  risk,
	}, nil
}
