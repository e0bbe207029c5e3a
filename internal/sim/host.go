// Package sim provides an in-process scripted game host. It implements the
// hook registration and action surfaces so the observer can run end to end
// without a real game attached, both in tests and via "citywatch run
// --simulate".
package sim

import (
	"fmt"
	"sync"

	"github.com/modwatch/citywatch/internal/hooks"
	"github.com/modwatch/citywatch/internal/probe"
)

// Host is a scripted stand-in for the game. Callbacks registered through the
// hook surface fire synchronously from the Emit* methods.
type Host struct {
	mu sync.Mutex

	apiVersion string
	nextSub    int

	gameInit     map[int]func()
	cityLoad     map[int]func(code int)
	mapReady     map[int]func()
	gameLoaded   map[int]func(name string)
	gameSaved    map[int]func(name string)
	demandChange map[int]func(popCount int)

	context probe.Context

	paused   bool
	speed    int
	money    int64
	storage  map[string]string
	failures map[string]error
}

// NewHost returns a host reporting the given modding API version.
func NewHost(apiVersion string) *Host {
	return &Host{
		apiVersion:   apiVersion,
		gameInit:     make(map[int]func()),
		cityLoad:     make(map[int]func(code int)),
		mapReady:     make(map[int]func()),
		gameLoaded:   make(map[int]func(name string)),
		gameSaved:    make(map[int]func(name string)),
		demandChange: make(map[int]func(popCount int)),
		context:      probe.MainMenu,
		speed:        1,
		storage:      make(map[string]string),
		failures:     make(map[string]error),
	}
}

// APIVersion implements hooks.Host.
func (h *Host) APIVersion() string { return h.apiVersion }

func (h *Host) subscribe(register func(id int), remove func(id int)) hooks.Unsubscribe {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	register(id)
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			remove(id)
		})
	}
}

// OnGameInit implements hooks.Host.
func (h *Host) OnGameInit(cb func()) hooks.Unsubscribe {
	return h.subscribe(
		func(id int) { h.gameInit[id] = cb },
		func(id int) { delete(h.gameInit, id) })
}

// OnCityLoad implements hooks.Host.
func (h *Host) OnCityLoad(cb func(code int)) hooks.Unsubscribe {
	return h.subscribe(
		func(id int) { h.cityLoad[id] = cb },
		func(id int) { delete(h.cityLoad, id) })
}

// OnMapReady implements hooks.Host.
func (h *Host) OnMapReady(cb func()) hooks.Unsubscribe {
	return h.subscribe(
		func(id int) { h.mapReady[id] = cb },
		func(id int) { delete(h.mapReady, id) })
}

// OnGameLoaded implements hooks.Host.
func (h *Host) OnGameLoaded(cb func(name string)) hooks.Unsubscribe {
	return h.subscribe(
		func(id int) { h.gameLoaded[id] = cb },
		func(id int) { delete(h.gameLoaded, id) })
}

// OnGameSaved implements hooks.Host.
func (h *Host) OnGameSaved(cb func(name string)) hooks.Unsubscribe {
	return h.subscribe(
		func(id int) { h.gameSaved[id] = cb },
		func(id int) { delete(h.gameSaved, id) })
}

// OnDemandChange implements hooks.Host.
func (h *Host) OnDemandChange(cb func(popCount int)) hooks.Unsubscribe {
	return h.subscribe(
		func(id int) { h.demandChange[id] = cb },
		func(id int) { delete(h.demandChange, id) })
}

// EmitGameInit fires every registered game-init callback.
func (h *Host) EmitGameInit() {
	for _, cb := range h.snapshotGameInit() {
		cb()
	}
}

// EmitCityLoad fires every registered city-load callback with code.
func (h *Host) EmitCityLoad(code int) {
	h.mu.Lock()
	cbs := make([]func(int), 0, len(h.cityLoad))
	for _, cb := range h.cityLoad {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(code)
	}
}

// EmitMapReady fires every registered map-ready callback.
func (h *Host) EmitMapReady() {
	h.mu.Lock()
	cbs := make([]func(), 0, len(h.mapReady))
	for _, cb := range h.mapReady {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// EmitGameLoaded fires every registered game-loaded callback with name.
func (h *Host) EmitGameLoaded(name string) {
	h.mu.Lock()
	cbs := make([]func(string), 0, len(h.gameLoaded))
	for _, cb := range h.gameLoaded {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(name)
	}
}

// EmitGameSaved fires every registered game-saved callback with name.
func (h *Host) EmitGameSaved(name string) {
	h.mu.Lock()
	cbs := make([]func(string), 0, len(h.gameSaved))
	for _, cb := range h.gameSaved {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(name)
	}
}

// EmitDemandChange fires every registered demand-change callback.
func (h *Host) EmitDemandChange(popCount int) {
	h.mu.Lock()
	cbs := make([]func(int), 0, len(h.demandChange))
	for _, cb := range h.demandChange {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()
	for _, cb := range cbs {
		cb(popCount)
	}
}

func (h *Host) snapshotGameInit() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	cbs := make([]func(), 0, len(h.gameInit))
	for _, cb := range h.gameInit {
		cbs = append(cbs, cb)
	}
	return cbs
}

// SetUIContext moves the simulated presentation surface; the polling probe
// picks it up through QueryContext.
func (h *Host) SetUIContext(c probe.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.context = c
}

// QueryContext reports the simulated presentation context. It matches the
// probe.PollProbe query signature.
func (h *Host) QueryContext() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["query_context"]; err != nil {
		return "", err
	}
	return string(h.context), nil
}

// FailNext makes the named action return err until cleared with a nil err.
// Known names: query_context, set_paused, is_paused, set_speed, speed,
// grant_money, money, storage_set, storage_get.
func (h *Host) FailNext(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failures, name)
		return
	}
	h.failures[name] = err
}

// SetPaused implements hooks.Actions.
func (h *Host) SetPaused(paused bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["set_paused"]; err != nil {
		return err
	}
	h.paused = paused
	return nil
}

// IsPaused implements hooks.Actions.
func (h *Host) IsPaused() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["is_paused"]; err != nil {
		return false, err
	}
	return h.paused, nil
}

// SetSimulationSpeed implements hooks.Actions. Valid speeds are 1 to 3.
func (h *Host) SetSimulationSpeed(speed int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["set_speed"]; err != nil {
		return err
	}
	if speed < 1 || speed > 3 {
		return fmt.Errorf("speed %d out of range 1-3", speed)
	}
	h.speed = speed
	return nil
}

// SimulationSpeed implements hooks.Actions.
func (h *Host) SimulationSpeed() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["speed"]; err != nil {
		return 0, err
	}
	return h.speed, nil
}

// GrantMoney implements hooks.Actions.
func (h *Host) GrantMoney(amount int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["grant_money"]; err != nil {
		return err
	}
	h.money += amount
	return nil
}

// Money implements hooks.Actions.
func (h *Host) Money() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["money"]; err != nil {
		return 0, err
	}
	return h.money, nil
}

// StorageSet implements hooks.Actions.
func (h *Host) StorageSet(key, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["storage_set"]; err != nil {
		return err
	}
	h.storage[key] = value
	return nil
}

// StorageGet implements hooks.Actions.
func (h *Host) StorageGet(key string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failures["storage_get"]; err != nil {
		return "", err
	}
	value, ok := h.storage[key]
	if !ok {
		return "", fmt.Errorf("no stored value for key %q", key)
	}
	return value, nil
}
