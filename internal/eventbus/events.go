package eventbus

// Body shapes carried by Event.Body for each Kind, named per spec §4.1/§4.5.

// KeypadKeyCodeEnteredBody is published by the keypad HTTP surface when a
// key sequence is submitted.
type KeypadKeyCodeEnteredBody struct {
	KeySequence string
}

// SensorDeviceStateChangeBody is published by a sensor device instance when
// its triggered state flips.
type SensorDeviceStateChangeBody struct {
	DeviceType string
	DeviceName string
	Triggered  bool
}

// AlarmActivatedBody accompanies AlarmActivated. NoGraceTime true means the
// sensor grace period is bypassed (triggerAlarm failed-attempt action).
type AlarmActivatedBody struct {
	ActivationTimestamp float64
	NoGraceTime         bool
}

// KeypadApiSendKeypadLockBody accompanies KeypadApiSendKeypadLock.
// LockTime is an absolute wall-clock unix timestamp, not a duration.
type KeypadApiSendKeypadLockBody struct {
	LockTime float64
}
