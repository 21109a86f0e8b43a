// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrInvalidFix is returned for RMC sentences whose status is not "A".
var ErrInvalidFix = errors.New("gps: receiver reports no valid fix")

// Parser accumulates NMEA sentences into fixes. RMC sentences complete a
// fix; GGA sentences only refresh satellite count and altitude.
type Parser struct {
	current Fix
}

// ParseLine feeds one NMEA line. ok is true when the line completed a
// fix. Lines that are blank, not sentences, or fail their checksum are
// skipped with ok false and no error; an RMC with void status returns
// ErrInvalidFix together with the partial fix.
func (p *Parser) ParseLine(line string) (fix Fix, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy receivers emit partial sentences
		return Fix{}, false, nil
	}

	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		p.current.Time = m.Time.String()
		p.current.Date = m.Date.String()
		p.current.Latitude = m.Latitude
		p.current.Longitude = m.Longitude
		p.current.SpeedKnots = m.Speed
		p.current.CourseDeg = m.Course
		p.current.Validity = string(m.Validity)
		if !p.current.Valid() {
			return p.current, false, ErrInvalidFix
		}
		return p.current, true, nil

	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid {
			p.current.Satellites = 0
			return Fix{}, false, nil
		}
		p.current.Satellites = m.NumSatellites
		p.current.AltitudeM = m.Altitude
	}
	return Fix{}, false, nil
}
