package imu

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestVector3Finite(t *testing.T) {
	test.That(t, Vector3{X: 1, Y: -2, Z: 9.81}.Finite(), test.ShouldBeTrue)
	test.That(t, Vector3{X: math.NaN()}.Finite(), test.ShouldBeFalse)
	test.That(t, Vector3{Z: math.Inf(1)}.Finite(), test.ShouldBeFalse)
}

func TestRawSamples(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := Raw{Source: "mock", Accel: Vector3{0, 0, 9.81}, Mag: Vector3{0, 22, -40}}

	samples := r.Samples(now)
	test.That(t, samples, test.ShouldHaveLength, 2)
	test.That(t, samples[0].Kind, test.ShouldEqual, Accelerometer)
	test.That(t, samples[0].Vector(), test.ShouldResemble, r.Accel)
	test.That(t, samples[1].Kind, test.ShouldEqual, Magnetometer)
	test.That(t, samples[1].Vector(), test.ShouldResemble, r.Mag)
	test.That(t, samples[1].Time, test.ShouldEqual, now)
}

func TestSampleWire(t *testing.T) {
	var s Sample
	err := json.Unmarshal([]byte(`{"kind":"mag","x":1.5,"y":-2,"z":3,"time":"2026-01-02T03:04:05Z"}`), &s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Validate(), test.ShouldBeNil)
	test.That(t, s.Vector(), test.ShouldResemble, Vector3{X: 1.5, Y: -2, Z: 3})

	s.Kind = "gyro"
	test.That(t, s.Validate(), test.ShouldBeError, `unknown sample kind "gyro"`)
}
