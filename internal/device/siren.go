package device

import (
	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/logging"
)

const sirenExpectedPinID = "sirenPin"

// GenericAlarmSiren drives a single GPIO pin active-low: High is silent,
// Low sounds the siren. Grounded on
// central_controller/DeviceTypes/generic_alarm_siren.py.
type GenericAlarmSiren struct {
	gpioCtl    *gpio.Controller
	log        *logging.Logger
	deviceName string
	ioPin      gpio.Label
}

func init() {
	Register("GenericAlarmSiren", func(bus *eventbus.Bus, gpioCtl *gpio.Controller, log *logging.Logger) Instance {
		return &GenericAlarmSiren{gpioCtl: gpioCtl, log: log}
	})
}

func (s *GenericAlarmSiren) Initialise(deviceName string, pins []Pin, additionalParams map[string]any) bool {
	s.deviceName = deviceName

	if len(pins) != 1 {
		s.log.Warning("device %q was expecting 1 pin, actually %d", deviceName, len(pins))
		return false
	}

	var match *Pin
	for i := range pins {
		if pins[i].Identifier == sirenExpectedPinID {
			match = &pins[i]
			break
		}
	}
	if match == nil {
		s.log.Warning("device %q missing expected pin %q", deviceName, sirenExpectedPinID)
		return false
	}

	s.ioPin = match.IOPin
	if err := s.gpioCtl.Write(s.ioPin, gpio.High); err != nil {
		s.log.Warning("device %q failed to initialise pin %s: %v", deviceName, s.ioPin, err)
		return false
	}
	return true
}

func (s *GenericAlarmSiren) CheckDevice() {}

func (s *GenericAlarmSiren) ReceiveEvent(event eventbus.Event) {
	switch event.Kind {
	case eventbus.ActivateSiren:
		if err := s.gpioCtl.Write(s.ioPin, gpio.Low); err != nil {
			s.log.Warning("device %q failed to activate: %v", s.deviceName, err)
		}
	case eventbus.DeactivateSiren:
		if err := s.gpioCtl.Write(s.ioPin, gpio.High); err != nil {
			s.log.Warning("device %q failed to deactivate: %v", s.deviceName, err)
		}
	}
}
