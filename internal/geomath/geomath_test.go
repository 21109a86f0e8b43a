package geomath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

var (
	cracow = Coordinate{Latitude: 50.0610055, Longitude: 19.940215}
	warsaw = Coordinate{Latitude: 52.2297, Longitude: 21.0122}
)

func TestNormalizeDegrees(t *testing.T) {
	test.That(t, NormalizeDegrees(-90), test.ShouldEqual, 270.0)
	test.That(t, NormalizeDegrees(450), test.ShouldEqual, 90.0)
	test.That(t, NormalizeDegrees(0), test.ShouldEqual, 0.0)
	test.That(t, NormalizeDegrees(360), test.ShouldEqual, 0.0)
	test.That(t, NormalizeDegrees(-720.5), test.ShouldAlmostEqual, 359.5)
	test.That(t, NormalizeDegrees(1e-15-360), test.ShouldBeLessThan, 360.0)
	test.That(t, NormalizeDegrees(-1e-15), test.ShouldBeLessThan, 360.0)
}

func TestNormalizeDegreesPeriodic(t *testing.T) {
	for _, x := range []float64{-1234.5, -359.9, -180, -0.25, 0.25, 179.75, 359.99, 721, 98765.4321} {
		base := NormalizeDegrees(x)
		test.That(t, base, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		test.That(t, base, test.ShouldBeLessThan, 360.0)
		for k := -3; k <= 3; k++ {
			test.That(t, NormalizeDegrees(x+360*float64(k)), test.ShouldAlmostEqual, base, 1e-9)
		}
	}
}

func TestMean(t *testing.T) {
	test.That(t, Mean(nil), test.ShouldEqual, 0.0)
	test.That(t, Mean([]float64{}), test.ShouldEqual, 0.0)
	test.That(t, Mean([]float64{42}), test.ShouldEqual, 42.0)
	test.That(t, Mean([]float64{1, 2, 3, 4}), test.ShouldEqual, 2.5)

	// arithmetic, not circular
	test.That(t, Mean([]float64{359, 1}), test.ShouldEqual, 180.0)

	values := make([]float64, 0, 20)
	sum := 0.0
	for i := 0; i < 20; i++ {
		v := float64(i*37%360) + 0.5
		values = append(values, v)
		sum += v
	}
	test.That(t, math.Abs(Mean(values)-sum/20), test.ShouldBeLessThanOrEqualTo, 1e-5)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(-5, 0, 10), test.ShouldEqual, 0.0)
	test.That(t, Clamp(15, 0, 10), test.ShouldEqual, 10.0)
	test.That(t, Clamp(7, 0, 10), test.ShouldEqual, 7.0)
	test.That(t, Clamp(3, 3, 3), test.ShouldEqual, 3.0)
}

func TestClampCoordinate(t *testing.T) {
	c := ClampCoordinate(Coordinate{Latitude: 91.5, Longitude: -200})
	test.That(t, c, test.ShouldResemble, Coordinate{Latitude: 90, Longitude: -180})

	c = ClampCoordinate(cracow)
	test.That(t, c, test.ShouldResemble, cracow)
}

func TestCoordinateFinite(t *testing.T) {
	test.That(t, cracow.Finite(), test.ShouldBeTrue)
	test.That(t, Coordinate{Latitude: math.NaN()}.Finite(), test.ShouldBeFalse)
	test.That(t, Coordinate{Longitude: math.Inf(-1)}.Finite(), test.ShouldBeFalse)
}

func TestDistanceAndBearingCracowWarsaw(t *testing.T) {
	d, b := DistanceAndBearing(cracow, warsaw)
	test.That(t, d, test.ShouldAlmostEqual, 252400, 1000)
	// atan2 initial bearing on the sphere
	test.That(t, b, test.ShouldAlmostEqual, 16.8, 0.5)

	back, rb := DistanceAndBearing(warsaw, cracow)
	test.That(t, back, test.ShouldAlmostEqual, d, 1e-6)
	test.That(t, rb, test.ShouldBeLessThan, 0.0)
	test.That(t, NormalizeDegrees(rb), test.ShouldAlmostEqual, 197.6, 0.5)
}

func TestDistanceAndBearingCardinal(t *testing.T) {
	origin := Coordinate{}

	d, b := DistanceAndBearing(origin, Coordinate{Latitude: 1})
	test.That(t, b, test.ShouldAlmostEqual, 0.0)
	test.That(t, d, test.ShouldAlmostEqual, MeanEarthRadiusMeters*math.Pi/180, 1e-3)

	_, b = DistanceAndBearing(origin, Coordinate{Longitude: 1})
	test.That(t, b, test.ShouldAlmostEqual, 90.0)

	_, b = DistanceAndBearing(origin, Coordinate{Latitude: -1})
	test.That(t, b, test.ShouldAlmostEqual, 180.0)

	_, b = DistanceAndBearing(origin, Coordinate{Longitude: -1})
	test.That(t, b, test.ShouldAlmostEqual, -90.0)
}

func TestDistanceAndBearingSelfAndSymmetry(t *testing.T) {
	points := []Coordinate{
		cracow,
		warsaw,
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9, Longitude: -179.9},
		{},
	}
	for _, a := range points {
		d, _ := DistanceAndBearing(a, a)
		test.That(t, d, test.ShouldBeLessThanOrEqualTo, 1e-3)
		for _, b := range points {
			ab, _ := DistanceAndBearing(a, b)
			ba, _ := DistanceAndBearing(b, a)
			test.That(t, ab, test.ShouldAlmostEqual, ba, 1e-6)
			test.That(t, ab, test.ShouldBeGreaterThanOrEqualTo, 0.0)
		}
	}
}

func TestDistanceAndBearingAntipodes(t *testing.T) {
	half := math.Pi * MeanEarthRadiusMeters
	for lat := -88.5; lat <= 88.5; lat += 1.5 {
		for lon := -179.0; lon < 180; lon += 4 {
			from := Coordinate{Latitude: lat, Longitude: lon}
			to := Coordinate{Latitude: -lat, Longitude: lon + 180}
			if to.Longitude > 180 {
				to.Longitude -= 360
			}
			d, _ := DistanceAndBearing(from, to)
			test.That(t, math.IsNaN(d), test.ShouldBeFalse)
			test.That(t, d, test.ShouldAlmostEqual, half, 1.0)
		}
	}

	d, _ := DistanceAndBearing(Coordinate{Latitude: -88.5, Longitude: -179}, Coordinate{Latitude: 88.5, Longitude: 1})
	test.That(t, d, test.ShouldAlmostEqual, half, 1.0)
	d, _ = DistanceAndBearing(Coordinate{Latitude: 90}, Coordinate{Latitude: -90})
	test.That(t, d, test.ShouldAlmostEqual, half, 1.0)
}
