// Package hooks defines the boundary to the game host: the typed lifecycle
// signals the host emits, the registration interface the host exposes, and
// the readiness handshake used before attaching to it.
package hooks

// Kind names a host lifecycle hook.
type Kind string

const (
	KindGameInitialized Kind = "game_initialized"
	KindCityLoaded      Kind = "city_loaded"
	KindMapReady        Kind = "map_ready"
	KindGameLoaded      Kind = "game_loaded"
	KindGameSaved       Kind = "game_saved"
	KindDemandChanged   Kind = "demand_changed"
)

// Signal is one host lifecycle event with its hook-specific payload.
// Each hook gets its own variant; payload shape is validated at the
// ingestion boundary rather than passed around as loose maps.
type Signal interface {
	Kind() Kind
}

// GameInitialized fires when the host finishes core game initialization.
// Expected once per session.
type GameInitialized struct{}

func (GameInitialized) Kind() Kind { return KindGameInitialized }

// CityLoaded fires when the host begins serving a city, carrying the host's
// load result code.
type CityLoaded struct {
	Code int
}

func (CityLoaded) Kind() Kind { return KindCityLoaded }

// MapReady fires when the map is fully interactive. Expected once per
// loaded city.
type MapReady struct{}

func (MapReady) Kind() Kind { return KindMapReady }

// GameLoaded fires when an asynchronous load completes, carrying the name of
// the save that ended up loaded.
type GameLoaded struct {
	Name string
}

func (GameLoaded) Kind() Kind { return KindGameLoaded }

// GameSaved fires when the host persists a save under the given name.
type GameSaved struct {
	Name string
}

func (GameSaved) Kind() Kind { return KindGameSaved }

// DemandChanged fires when the host recalculates zoning demand, carrying the
// population count at that moment. Empirically the host only emits this
// before gameplay starts; the engine's detector flags that divergence.
type DemandChanged struct {
	PopCount int
}

func (DemandChanged) Kind() Kind { return KindDemandChanged }
