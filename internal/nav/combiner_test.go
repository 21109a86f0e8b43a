package nav

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestCombinerHeadingComposition(t *testing.T) {
	sink := &recordingSink{}
	c := NewCombiner(sink)

	test.That(t, c.UpdateNorthAzimuth(100), test.ShouldBeNil)
	c.UpdateHeading(-30)
	c.UpdateDistance(1234)
	test.That(t, c.UpdateNorthAzimuth(100), test.ShouldBeNil)

	got := sink.batches(t)
	test.That(t, got, test.ShouldHaveLength, 2)
	test.That(t, got[1], test.ShouldResemble, Reading{NorthAzimuthDeg: 100, HeadingDeg: 430, DistanceM: 1234})
}

func TestCombinerBatchesHeadingAndDistance(t *testing.T) {
	sink := &recordingSink{}
	c := NewCombiner(sink)

	c.UpdateHeading(45)
	c.UpdateDistance(10)
	c.UpdateHeading(50)
	test.That(t, sink.calls, test.ShouldBeEmpty)

	test.That(t, c.UpdateNorthAzimuth(20), test.ShouldBeNil)
	test.That(t, sink.batches(t), test.ShouldResemble, []Reading{{NorthAzimuthDeg: 20, HeadingDeg: 70, DistanceM: 10}})
}

func TestCombinerLastCallTracksAzimuth(t *testing.T) {
	sink := &recordingSink{}
	c := NewCombiner(sink)

	c.UpdateHeading(-90)
	for _, a := range []float64{10, 200, 359, 0, 123.5} {
		test.That(t, c.UpdateNorthAzimuth(a), test.ShouldBeNil)
		got := sink.batches(t)
		last := got[len(got)-1]
		test.That(t, last.NorthAzimuthDeg, test.ShouldEqual, a)
		test.That(t, last.HeadingDeg, test.ShouldEqual, 270+a)
	}
}

func TestCombinerNoBearingYet(t *testing.T) {
	sink := &recordingSink{}
	c := NewCombiner(sink)
	test.That(t, c.UpdateNorthAzimuth(77), test.ShouldBeNil)
	test.That(t, sink.batches(t), test.ShouldResemble, []Reading{{NorthAzimuthDeg: 77}})
}

func TestCombinerSinkErrorAfterStateUpdate(t *testing.T) {
	boom := errors.New("display gone")
	sink := &recordingSink{err: boom}
	c := NewCombiner(sink)

	err := c.UpdateNorthAzimuth(15)
	test.That(t, err, test.ShouldEqual, boom)
	test.That(t, c.State().NorthAzimuthDeg, test.ShouldEqual, 15.0)
	test.That(t, sink.calls, test.ShouldHaveLength, 1)
}

func TestCombinerReset(t *testing.T) {
	c := NewCombiner(nil)
	c.UpdateHeading(10)
	c.UpdateDistance(5)
	test.That(t, c.UpdateNorthAzimuth(1), test.ShouldBeNil)

	c.Reset()
	test.That(t, c.State(), test.ShouldResemble, Reading{})
	test.That(t, c.UpdateNorthAzimuth(3), test.ShouldBeNil)
	test.That(t, c.State().HeadingDeg, test.ShouldEqual, 0.0)
}
