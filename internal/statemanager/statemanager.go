// Package statemanager implements the alarm state machine (spec §4.5):
// key-code handling, sensor event handling, and the outbound alive-ping /
// keypad-lock HTTP calls with their retry and latch discipline. Grounded
// directly on original_source/src/central_controller/state_manager.py.
package statemanager

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"secureshed/internal/eventbus"
	"secureshed/internal/keycode"
	"secureshed/internal/logging"
)

// AlarmState is the top-level alarm state (spec §4.5).
type AlarmState int

const (
	Deactivated AlarmState = iota
	Activated
	Triggered
)

func (s AlarmState) String() string {
	switch s {
	case Deactivated:
		return "Deactivated"
	case Activated:
		return "Activated"
	case Triggered:
		return "Triggered"
	default:
		return "Unknown"
	}
}

// FailedAttemptAction is one action configured under a FailedAttemptResponses
// entry (spec §4.5.1).
type FailedAttemptAction struct {
	DisableKeyPad       bool
	DisableKeyPadSecs   int
	TriggerAlarm        bool
	ResetAttemptAccount bool
}

// Config is the subset of configuration the state manager needs.
type Config struct {
	FailedAttemptResponses map[int][]FailedAttemptAction
	KeypadEndpoint         string
	KeypadAuthKey          string
}

// KeyCodeLookup is satisfied by *keycode.Store; declared as an interface so
// tests can substitute an in-memory fake.
type KeyCodeLookup interface {
	Lookup(keySequence string) (keycode.Record, bool)
}

// Manager owns the alarm state and the outbound keypad HTTP client.
type Manager struct {
	bus    *eventbus.Bus
	store  KeyCodeLookup
	cfg    Config
	log    *logging.Logger
	client *http.Client
	now    func() time.Time

	state                    AlarmState
	failedEntryAttempts      int
	unableToConnErrDisplayed bool
}

// New creates a Manager and registers its event handlers on bus.
func New(bus *eventbus.Bus, store KeyCodeLookup, cfg Config, log *logging.Logger) *Manager {
	m := &Manager{
		bus:    bus,
		store:  store,
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
		state:  Deactivated,
	}
	bus.Register(eventbus.KeypadKeyCodeEntered, m.handleKeyCodeEntered)
	bus.Register(eventbus.SensorDeviceStateChange, m.handleSensorStateChange)
	bus.Register(eventbus.KeypadApiSendAlivePing, m.sendAlivePingMsg)
	bus.Register(eventbus.KeypadApiSendKeypadLock, m.sendKeypadLockedMsg)
	return m
}

// State reports the current alarm state, mostly for tests.
func (m *Manager) State() AlarmState {
	return m.state
}

func (m *Manager) handleKeyCodeEntered(event eventbus.Event) {
	body, _ := event.Body.(eventbus.KeypadKeyCodeEnteredBody)

	if _, ok := m.store.Lookup(body.KeySequence); ok {
		switch m.state {
		case Triggered:
			m.log.Info("a triggered alarm has been deactivated")
			_ = m.bus.Queue(eventbus.Event{Kind: eventbus.DeactivateSiren})
			m.deactivateAlarm()

		case Deactivated:
			m.log.Info("the alarm has been activated")
			m.failedEntryAttempts = 0
			m.triggerAlarm(false)

		case Activated:
			m.log.Info("the alarm has been deactivated")
			m.deactivateAlarm()
		}
		return
	}

	m.log.Info("an invalid key code was entered on keypad")
	m.failedEntryAttempts++

	actions, ok := m.cfg.FailedAttemptResponses[m.failedEntryAttempts]
	if !ok {
		return
	}

	for _, action := range actions {
		switch {
		case action.DisableKeyPad:
			_ = m.bus.Queue(eventbus.Event{
				Kind: eventbus.KeypadApiSendKeypadLock,
				Body: eventbus.KeypadApiSendKeypadLockBody{
					LockTime: float64(m.now().Unix() + int64(action.DisableKeyPadSecs)),
				},
			})

		case action.TriggerAlarm:
			if m.state != Triggered {
				m.log.Info("|=> alarm has been triggered!")
				m.triggerAlarm(true)
			}

		case action.ResetAttemptAccount:
			m.failedEntryAttempts = 0
		}
	}
}

func (m *Manager) triggerAlarm(noGraceTime bool) {
	m.state = Activated
	_ = m.bus.Queue(eventbus.Event{
		Kind: eventbus.AlarmActivated,
		Body: eventbus.AlarmActivatedBody{
			ActivationTimestamp: float64(m.now().UnixNano()) / 1e9,
			NoGraceTime:         noGraceTime,
		},
	})
}

func (m *Manager) deactivateAlarm() {
	m.state = Deactivated
	m.failedEntryAttempts = 0
	_ = m.bus.Queue(eventbus.Event{Kind: eventbus.AlarmDeactivated})
}

func (m *Manager) handleSensorStateChange(event eventbus.Event) {
	body, _ := event.Body.(eventbus.SensorDeviceStateChangeBody)
	stateStr := "closed"
	if body.Triggered {
		stateStr = "opened"
	}

	switch m.state {
	case Deactivated:
		m.log.Info("%s was %s, although alarm isn't on", body.DeviceName, stateStr)

	case Triggered:
		m.log.Info("%s was %s, alarm already triggered", body.DeviceName, stateStr)

	case Activated:
		m.log.Info("activity on %s (%s) has triggered the alarm!", body.DeviceName, stateStr)
		m.state = Triggered
		_ = m.bus.Queue(eventbus.Event{Kind: eventbus.ActivateSiren})
	}
}

// sendAlivePingMsg POSTs receiveCentralControllerPing to the keypad (spec
// §4.5.3). Transport failures re-queue the event and latch a single "unable
// to connect" log until the next success; 401/403 are logged critical with
// no retry; 200 clears the latch.
func (m *Manager) sendAlivePingMsg(event eventbus.Event) {
	resp, err := m.post("receiveCentralControllerPing", nil)
	if err != nil {
		if !m.unableToConnErrDisplayed {
			m.log.Info("unable to communicate with keypad, reason: %v", err)
			m.unableToConnErrDisplayed = true
		}
		_ = m.bus.Queue(event)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		m.log.Critical("keypad cannot send AlivePing as the authorisation key is missing")
		return
	case http.StatusForbidden:
		m.log.Critical("keypad cannot send AlivePing as the authorisation key is incorrect")
		return
	case http.StatusOK:
		m.log.Info("successfully sent 'AlivePing' to keypad controller")
	}
	m.unableToConnErrDisplayed = false
}

// sendKeypadLockedMsg POSTs receiveKeypadLock to the keypad (spec §4.5.4).
func (m *Manager) sendKeypadLockedMsg(event eventbus.Event) {
	body, _ := event.Body.(eventbus.KeypadApiSendKeypadLockBody)

	resp, err := m.post("receiveKeypadLock", map[string]any{"lockTime": body.LockTime})
	if err != nil {
		m.log.Debug("keypad locked msg: unable to communicate with keypad, reason: %v", err)
		_ = m.bus.Queue(event)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		m.log.Critical("keypad locked msg: cannot send as the authorisation key is missing")
	case http.StatusForbidden:
		m.log.Critical("keypad locked msg: authorisation key is incorrect")
	case http.StatusOK:
		m.log.Debug("successfully sent 'keypad locked msg' to keypad controller")
	}
}

func (m *Manager) post(path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("statemanager: encoding body for %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequest(http.MethodPost, m.cfg.KeypadEndpoint+"/"+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorisationKey", m.cfg.KeypadAuthKey)

	return m.client.Do(req)
}
