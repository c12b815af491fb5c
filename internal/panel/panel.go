// Package panel implements the keypad controller's panel state machine
// (spec §4.7): which drawing surface is visible, the comms-lost reconnect
// probe, and the digit-entry buffer with its 5-second sequence timer.
// Grounded directly on
// original_source/src/KeypadController/keypad_state_object.py (panel
// selection/reconnect cadence) and .../Gui/KeypadPanel.py (digit buffer,
// GO/Reset handling), with the wx GUI surface dropped per spec §4.7's "only
// selects which drawing surface is visible" framing — headless here, no
// physical display.
package panel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"secureshed/internal/logging"
)

// Type is the drawing surface the panel currently shows.
type Type int

const (
	Keypad Type = iota
	KeypadIsLocked
	CommunicationsLost
)

func (t Type) String() string {
	switch t {
	case Keypad:
		return "Keypad"
	case KeypadIsLocked:
		return "KeypadIsLocked"
	case CommunicationsLost:
		return "CommunicationsLost"
	default:
		return "Unknown"
	}
}

// State is (panel type, lock deadline). LockDeadline is only meaningful
// when Type is KeypadIsLocked; it is an absolute wall-clock unix timestamp.
type State struct {
	Type         Type
	LockDeadline float64
}

// CommLostRetryInterval is the fixed reconnect-probe cadence (spec §4.7).
const CommLostRetryInterval = 5 * time.Second

// SequenceTimeout is the digit-entry buffer's abandon timeout (spec §4.7.1).
const SequenceTimeout = 5 * time.Second

// Panel owns the live panel state and the digit-entry buffer.
type Panel struct {
	current State
	new     State

	lastReconnect    time.Time
	keySequence      string
	sequenceDeadline time.Time

	centralEndpoint string
	centralAuthKey  string
	client          *http.Client
	log             *logging.Logger
	now             func() time.Time
}

// New creates a panel that starts in CommunicationsLost, matching the
// original's boot default (we don't yet know if the central controller is
// reachable).
func New(centralEndpoint, centralAuthKey string, log *logging.Logger) *Panel {
	return &Panel{
		current:         State{Type: CommunicationsLost},
		new:             State{Type: CommunicationsLost},
		centralEndpoint: centralEndpoint,
		centralAuthKey:  centralAuthKey,
		client:          &http.Client{Timeout: 5 * time.Second},
		log:             log,
		now:             time.Now,
	}
}

// Current reports the currently displayed panel.
func (p *Panel) Current() State {
	return p.current
}

// SetNew requests a panel change, applied on the next Tick. Matches the
// original's "new_panel" property used by both HTTP handlers to request a
// transition without mutating the displayed state directly.
func (p *Panel) SetNew(s State) {
	p.new = s
}

// Tick drives the panel once per worker-loop iteration (10ms cadence) and
// the digit-entry sequence timeout.
func (p *Panel) Tick() {
	now := p.now()

	if p.new.Type != p.current.Type {
		p.current = p.new
		p.redraw()
	} else if p.current.Type == KeypadIsLocked {
		if float64(now.Unix()) >= p.current.LockDeadline {
			p.current = State{Type: Keypad}
			p.new = p.current
			p.redraw()
		}
	} else if p.current.Type == CommunicationsLost {
		if now.After(p.lastReconnect.Add(CommLostRetryInterval)) {
			p.lastReconnect = now
			go p.sendPleaseRespondMsg()
		}
	}

	if !p.sequenceDeadline.IsZero() && now.After(p.sequenceDeadline) {
		p.resetSequence()
	}
}

func (p *Panel) redraw() {
	p.log.Info("panel redrawn: %s", p.current.Type)
}

// ReceiveCentralControllerPing handles the inbound alive-ping: only a panel
// currently CommunicationsLost is moved back to Keypad; any other state is
// left untouched (spec §4.7.2).
func (p *Panel) ReceiveCentralControllerPing() {
	if p.current.Type == CommunicationsLost {
		p.SetNew(State{Type: Keypad})
	}
}

// ReceiveKeypadLock handles the inbound lock request (spec §4.7.2).
func (p *Panel) ReceiveKeypadLock(lockTime float64) {
	p.SetNew(State{Type: KeypadIsLocked, LockDeadline: lockTime})
}

// PressDigit appends a digit to the entry buffer, starting the sequence
// timer on the first digit (spec §4.7.1).
func (p *Panel) PressDigit(digit string) {
	if p.keySequence == "" {
		p.sequenceDeadline = p.now().Add(SequenceTimeout)
	}
	p.keySequence += digit
}

// ResetKeypad clears the buffer without sending (spec §4.7.1, the "Reset"
// button).
func (p *Panel) ResetKeypad() {
	p.resetSequence()
}

func (p *Panel) resetSequence() {
	p.keySequence = ""
	p.sequenceDeadline = time.Time{}
}

// Go transmits the entered sequence to the central controller's
// /receiveKeyCode route, then clears the buffer regardless of outcome
// (spec §4.7.1: "stop the timer, clear the buffer").
func (p *Panel) Go() error {
	if p.keySequence == "" {
		return nil
	}
	sequence := p.keySequence
	p.resetSequence()

	payload, err := json.Marshal(map[string]string{"keySequence": sequence})
	if err != nil {
		return fmt.Errorf("panel: encoding key sequence: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.centralEndpoint+"/receiveKeyCode", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorisationKey", p.centralAuthKey)

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warning("failed to transmit key code, reason: %v", err)
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (p *Panel) sendPleaseRespondMsg() {
	req, err := http.NewRequest(http.MethodPost, p.centralEndpoint+"/pleaseRespondToKeypad", nil)
	if err != nil {
		return
	}
	req.Header.Set("authorisationKey", p.centralAuthKey)

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warning("failed to transmit, reason: %v", err)
		return
	}
	defer resp.Body.Close()
}
