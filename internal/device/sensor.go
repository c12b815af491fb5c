package device

import (
	"time"

	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/logging"
)

const (
	sensorExpectedPinID = "sensorPin"
	sensorTypeName      = "Magnetic Contact Sensor"
)

// sensorState mirrors MagneticContactSensor.StateType from
// magnetic_contact_sensor.py.
type sensorState int

const (
	stateAlarmActivate sensorState = iota
	stateAlarmInactive
	stateAlarmSetPeriod
	stateAlarmUnsetPeriod
)

// MagneticContactSensor reads a single GPIO input pin (pulled up, so 1 means
// open/triggered) and applies the configured trigger grace period before
// publishing SensorDeviceStateChange. Grounded on
// central_controller/DeviceTypes/magnetic_contact_sensor.py.
type MagneticContactSensor struct {
	bus     *eventbus.Bus
	gpioCtl *gpio.Controller
	log     *logging.Logger

	deviceName     string
	ioPin          gpio.Label
	graceSecs      int
	hasGraceSecs   bool
	triggered      bool
	state          sensorState
	graceTimeout   float64
	now            func() float64
}

func init() {
	Register("MagneticContactSensor", func(bus *eventbus.Bus, gpioCtl *gpio.Controller, log *logging.Logger) Instance {
		return &MagneticContactSensor{
			bus:     bus,
			gpioCtl: gpioCtl,
			log:     log,
			state:   stateAlarmInactive,
			now:     func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
		}
	})
}

func (s *MagneticContactSensor) Initialise(deviceName string, pins []Pin, additionalParams map[string]any) bool {
	s.deviceName = deviceName

	if len(pins) != 1 {
		s.log.Warning("device %q was expecting 1 pin, actually %d", deviceName, len(pins))
		return false
	}

	var match *Pin
	for i := range pins {
		if pins[i].Identifier == sensorExpectedPinID {
			match = &pins[i]
			break
		}
	}
	if match == nil {
		s.log.Warning("device %q missing expected pin %q", deviceName, sensorExpectedPinID)
		return false
	}
	s.ioPin = match.IOPin

	if raw, ok := additionalParams["triggerGracePeriodSecs"]; ok {
		if secs, ok := raw.(int); ok && secs > 0 {
			s.graceSecs = secs
			s.hasGraceSecs = true
		}
	}

	return true
}

func (s *MagneticContactSensor) CheckDevice() {
	contactOpen := s.gpioCtl.Read(s.ioPin) == gpio.High

	switch s.state {
	case stateAlarmSetPeriod:
		s.handleAlarmSetGracePeriod(contactOpen)
	case stateAlarmUnsetPeriod:
		s.handleAlarmUnsetGracePeriod()
	default:
		if s.triggered && s.state == stateAlarmActivate {
			// Already latched triggered; ignore further contact changes
			// until AlarmDeactivated.
			return
		}
		if s.triggered == contactOpen {
			return
		}

		stateMsg := "closed"
		if contactOpen {
			stateMsg = "opened"
		}

		if s.state == stateAlarmInactive {
			s.log.Info("device %q was %s", s.deviceName, stateMsg)
			s.triggered = contactOpen
			return
		}

		if s.hasGraceSecs {
			s.state = stateAlarmUnsetPeriod
			s.log.Info("device %q sensor triggered, entered grace period of %d seconds", s.deviceName, s.graceSecs)
			s.graceTimeout = s.now() + float64(s.graceSecs)
		} else {
			s.triggered = contactOpen
			s.log.Info("device %q was %s", s.deviceName, stateMsg)
			s.publishStateChange()
		}
	}
}

func (s *MagneticContactSensor) handleAlarmSetGracePeriod(contactOpen bool) {
	if s.now() <= s.graceTimeout {
		return
	}

	s.state = stateAlarmActivate
	s.log.Info("device %q alarm set grace period ended", s.deviceName)

	if contactOpen {
		s.log.Info("device %q caused alarm to trigger", s.deviceName)
		s.triggered = true
		s.publishStateChange()
	}
}

func (s *MagneticContactSensor) handleAlarmUnsetGracePeriod() {
	if s.now() <= s.graceTimeout {
		return
	}

	s.log.Info("device %q alarm unset grace period ended, the alarm has been triggered", s.deviceName)
	s.state = stateAlarmActivate
	s.triggered = true
	s.publishStateChange()
}

func (s *MagneticContactSensor) ReceiveEvent(event eventbus.Event) {
	switch event.Kind {
	case eventbus.AlarmActivated:
		// The device manager only routes this event to sensors when
		// NoGraceTime is false (spec: AlarmActivated{noGraceTime=true}
		// never puts a sensor into AlarmSetPeriod), so no need to
		// re-check the body here.
		body, _ := event.Body.(eventbus.AlarmActivatedBody)
		if s.hasGraceSecs {
			s.graceTimeout = body.ActivationTimestamp + float64(s.graceSecs)
			s.log.Info("alarm activated, device %q is in grace period of %d seconds", s.deviceName, s.graceSecs)
			s.state = stateAlarmSetPeriod
		} else {
			s.state = stateAlarmActivate
		}
		s.triggered = false

	case eventbus.AlarmDeactivated:
		s.state = stateAlarmInactive
	}
}

func (s *MagneticContactSensor) publishStateChange() {
	_ = s.bus.Queue(eventbus.Event{
		Kind: eventbus.SensorDeviceStateChange,
		Body: eventbus.SensorDeviceStateChangeBody{
			DeviceType: sensorTypeName,
			DeviceName: s.deviceName,
			Triggered:  s.triggered,
		},
	})
}
