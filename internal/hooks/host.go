package hooks

// Unsubscribe detaches a previously registered callback. Calling it more
// than once is a no-op.
type Unsubscribe func()

// Host is the hook registration API the game exposes. Cardinality of each
// hook is unspecified by the host; duplicate and out-of-phase firings are
// exactly what the observer's detectors exist to catch.
type Host interface {
	// APIVersion reports the host's modding API version (semver).
	APIVersion() string

	OnGameInit(cb func()) Unsubscribe
	OnCityLoad(cb func(code int)) Unsubscribe
	OnMapReady(cb func()) Unsubscribe
	OnGameLoaded(cb func(name string)) Unsubscribe
	OnGameSaved(cb func(name string)) Unsubscribe
	OnDemandChange(cb func(popCount int)) Unsubscribe
}

// Actions is the small command surface the functional checklist runner
// exercises. It is deliberately separate from Host: observation never
// requires it.
type Actions interface {
	SetPaused(paused bool) error
	IsPaused() (bool, error)
	SetSimulationSpeed(speed int) error
	SimulationSpeed() (int, error)
	GrantMoney(amount int64) error
	Money() (int64, error)
	StorageSet(key, value string) error
	StorageGet(key string) (string, error)
}

// Ingestor consumes typed signals. The lifecycle engine implements it.
type Ingestor interface {
	HandleSignal(sig Signal)
}

// Attach registers the full signal set on the host and forwards each firing
// to the ingestor as a typed variant. The returned Unsubscribe detaches all
// six hooks.
func Attach(h Host, in Ingestor) Unsubscribe {
	subs := []Unsubscribe{
		h.OnGameInit(func() { in.HandleSignal(GameInitialized{}) }),
		h.OnCityLoad(func(code int) { in.HandleSignal(CityLoaded{Code: code}) }),
		h.OnMapReady(func() { in.HandleSignal(MapReady{}) }),
		h.OnGameLoaded(func(name string) { in.HandleSignal(GameLoaded{Name: name}) }),
		h.OnGameSaved(func(name string) { in.HandleSignal(GameSaved{Name: name}) }),
		h.OnDemandChange(func(pop int) { in.HandleSignal(DemandChanged{PopCount: pop}) }),
	}
	return func() {
		for _, unsub := range subs {
			unsub()
		}
	}
}
