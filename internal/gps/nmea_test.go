package gps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.viam.com/test"
)

const (
	rmcValid = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"
	rmcVoid  = "$GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*67"
	ggaFix   = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F"
	ggaNoFix = "$GPGGA,172815.0,,,,,0,0,,,M,,M,,*40"
)

func TestParseLineRMC(t *testing.T) {
	var p Parser
	fix, ok, err := p.ParseLine(rmcValid + "\r\n")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Valid(), test.ShouldBeTrue)
	test.That(t, fix.Latitude, test.ShouldAlmostEqual, 51.0+33.82/60, 1e-9)
	test.That(t, fix.Longitude, test.ShouldAlmostEqual, -42.24/60, 1e-9)
	test.That(t, fix.SpeedKnots, test.ShouldAlmostEqual, 173.8)
	test.That(t, fix.CourseDeg, test.ShouldAlmostEqual, 231.8)
	test.That(t, fix.Time, test.ShouldContainSubstring, "22:05:16")

	c := fix.Coordinate()
	test.That(t, c.Latitude, test.ShouldEqual, fix.Latitude)
	test.That(t, c.Longitude, test.ShouldEqual, fix.Longitude)
}

func TestParseLineVoidRMC(t *testing.T) {
	var p Parser
	fix, ok, err := p.ParseLine(rmcVoid)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, errors.Is(err, ErrInvalidFix), test.ShouldBeTrue)
	test.That(t, fix.Validity, test.ShouldEqual, "V")
}

func TestParseLineGGAEnrichesNextFix(t *testing.T) {
	var p Parser
	_, ok, err := p.ParseLine(ggaFix)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	fix, ok, err := p.ParseLine(rmcValid)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Satellites, test.ShouldEqual, int64(6))
	test.That(t, fix.AltitudeM, test.ShouldAlmostEqual, 18.893)

	_, _, err = p.ParseLine(ggaNoFix)
	test.That(t, err, test.ShouldBeNil)
	fix, _, _ = p.ParseLine(rmcValid)
	test.That(t, fix.Satellites, test.ShouldEqual, int64(0))
}

func TestParseLineSkipsNoise(t *testing.T) {
	var p Parser
	for _, line := range []string{
		"",
		"   ",
		"garbage",
		"$GPRMC,220516,A,5133.82,N*00",
		strings.Replace(rmcValid, "*70", "*71", 1),
	} {
		_, ok, err := p.ParseLine(line)
		test.That(t, ok, test.ShouldBeFalse)
		test.That(t, err, test.ShouldBeNil)
	}
}

func TestReadFixes(t *testing.T) {
	input := strings.Join([]string{ggaFix, "junk", rmcVoid, rmcValid, rmcValid}, "\n")

	var fixes []Fix
	err := ReadFixes(context.Background(), strings.NewReader(input), func(f Fix) error {
		fixes = append(fixes, f)
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fixes, test.ShouldHaveLength, 2)
	test.That(t, fixes[0].Satellites, test.ShouldEqual, int64(6))
}

func TestReadFixesStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := ReadFixes(context.Background(), strings.NewReader(rmcValid+"\n"+rmcValid+"\n"), func(Fix) error {
		calls++
		return stop
	})
	test.That(t, err, test.ShouldEqual, stop)
	test.That(t, calls, test.ShouldEqual, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ReadFixes(ctx, strings.NewReader(rmcValid+"\n"), func(Fix) error { return nil })
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}
