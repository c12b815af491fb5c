package workerloop_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"secureshed/internal/logging"
	"secureshed/internal/workerloop"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New("test", t.TempDir(), 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestLoopTicksRepeatedly(t *testing.T) {
	var count int32
	l := workerloop.New(5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	}, newTestLogger(t))

	go l.Run()
	time.Sleep(30 * time.Millisecond)
	l.Stop()
	<-l.Done()

	require.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(2))
	require.True(t, l.ShuttingDownComplete())
}

func TestLoopStopIsCooperative(t *testing.T) {
	l := workerloop.New(5*time.Millisecond, func() {}, newTestLogger(t))
	require.False(t, l.ShuttingDownComplete())

	go l.Run()
	l.Stop()
	<-l.Done()
	require.True(t, l.ShuttingDownComplete())
}

func TestLoopRecoversFromPanickingTick(t *testing.T) {
	var ticks int32
	l := workerloop.New(5*time.Millisecond, func() {
		atomic.AddInt32(&ticks, 1)
		panic("boom")
	}, newTestLogger(t))

	go l.Run()
	time.Sleep(20 * time.Millisecond)
	l.Stop()
	<-l.Done()

	require.GreaterOrEqual(t, atomic.LoadInt32(&ticks), int32(2), "a panicking tick must not kill the loop")
}

type fakeGPIO struct{ rescans int32 }

func (f *fakeGPIO) Rescan() error { atomic.AddInt32(&f.rescans, 1); return nil }

type fakeDevices struct{ checks int32 }

func (f *fakeDevices) CheckAll() { atomic.AddInt32(&f.checks, 1) }

type fakeBus struct{ drains int32 }

func (f *fakeBus) ProcessNext() { atomic.AddInt32(&f.drains, 1) }

func TestCentralTickDrivesRescanChecksAndDrain(t *testing.T) {
	gpioCtl := &fakeGPIO{}
	devices := &fakeDevices{}
	bus := &fakeBus{}
	var swept int32

	tick := workerloop.CentralTick(gpioCtl, devices, bus, newTestLogger(t), func() {
		atomic.AddInt32(&swept, 1)
	})
	tick()

	require.EqualValues(t, 1, atomic.LoadInt32(&gpioCtl.rescans))
	require.EqualValues(t, 1, atomic.LoadInt32(&devices.checks))
	require.EqualValues(t, 1, atomic.LoadInt32(&bus.drains))
	require.EqualValues(t, 1, atomic.LoadInt32(&swept))
}

func TestCentralTickToleratesNilSweep(t *testing.T) {
	tick := workerloop.CentralTick(&fakeGPIO{}, &fakeDevices{}, &fakeBus{}, newTestLogger(t), nil)
	require.NotPanics(t, tick)
}

type fakePanel struct{ ticks int32 }

func (f *fakePanel) Tick() { atomic.AddInt32(&f.ticks, 1) }

func TestKeypadTickDrivesPanel(t *testing.T) {
	p := &fakePanel{}
	tick := workerloop.KeypadTick(p)
	tick()
	tick()
	require.EqualValues(t, 2, atomic.LoadInt32(&p.ticks))
}
