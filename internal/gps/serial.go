// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens the receiver's serial port, 8N1.
func OpenSerial(portName string, baudRate uint) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("gps: open %s: %w", portName, err)
	}
	return port, nil
}

// ReadFixes parses NMEA lines from r and calls handle for every valid
// fix until r is exhausted, ctx is done, or handle fails. Void fixes are
// logged and skipped.
func ReadFixes(ctx context.Context, r io.Reader, handle func(Fix) error) error {
	var parser Parser
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		fix, ok, err := parser.ParseLine(scanner.Text())
		if errors.Is(err, ErrInvalidFix) {
			log.Printf("gps: skipping void fix at %s", fix.Time)
			continue
		}
		if !ok {
			continue
		}
		if err := handle(fix); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("gps: read: %w", err)
	}
	return nil
}
