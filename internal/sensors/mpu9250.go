// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors reads accelerometer and magnetometer vectors from an
// MPU9250 (with its AK8963 magnetometer in I2C bypass mode).
package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/compass_nav/internal/imu"
)

// Default I2C addresses.
const (
	DefaultMPUAddr = 0x68
	DefaultMagAddr = 0x0C
)

// MPU9250 registers
const (
	regAccelConfig = 0x1C
	regIntPinCfg   = 0x37
	regAccelXOutH  = 0x3B
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75

	bypassEnable = 0x02
)

// AK8963 registers
const (
	regMagWIA   = 0x00
	regMagST1   = 0x02
	regMagHXL   = 0x03
	regMagCNTL1 = 0x0A
	regMagASAX  = 0x10

	magWhoAmI     = 0x48
	magPowerDown  = 0x00
	magFuseROM    = 0x0F
	magContinuous = 0x16 // 16-bit output, 100 Hz
	magDataReady  = 0x01
	magOverflow   = 0x08
)

const (
	standardGravity = 9.80665
	accelLSBPerG    = 16384.0 // ±2g
	magMicroTesla   = 0.15    // per LSB at 16-bit output
	modeSwitchDelay = 10 * time.Millisecond
)

// ErrMagNotReady is returned by NextRaw until the magnetometer has produced
// its first valid measurement.
var ErrMagNotReady = errors.New("mpu9250: magnetometer has no data yet")

// MPU9250 implements imu.RawSource over I2C. Vectors are in the
// accelerometer frame: m/s² for acceleration, µT for the field.
type MPU9250 struct {
	mpu    *i2c.Dev
	mag    *i2c.Dev
	adj    [3]float64
	closer interface{ Close() error }

	lastMag imu.Vector3
	haveMag bool
}

// OpenMPU9250 initializes periph, opens the named I2C bus ("" for the first
// one available) and configures both chips.
func OpenMPU9250(busName string, mpuAddr, magAddr uint16) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: open I2C bus %q: %w", busName, err)
	}
	d, err := NewMPU9250(bus, mpuAddr, magAddr)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.closer = bus
	return d, nil
}

// NewMPU9250 configures an MPU9250 already reachable on bus.
func NewMPU9250(bus i2c.Bus, mpuAddr, magAddr uint16) (*MPU9250, error) {
	d := &MPU9250{
		mpu: &i2c.Dev{Bus: bus, Addr: mpuAddr},
		mag: &i2c.Dev{Bus: bus, Addr: magAddr},
	}

	if err := d.writeReg(d.mpu, regPwrMgmt1, 0x00); err != nil {
		return nil, fmt.Errorf("mpu9250: wake: %w", err)
	}
	id, err := d.readReg(d.mpu, regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: read WHO_AM_I: %w", err)
	}
	switch id {
	case 0x71, 0x73: // MPU9250, MPU9255
	default:
		return nil, fmt.Errorf("mpu9250: unexpected WHO_AM_I 0x%02X", id)
	}
	log.Printf("mpu9250: WHO_AM_I = 0x%02X at 0x%02X", id, mpuAddr)

	if err := d.writeReg(d.mpu, regAccelConfig, 0x00); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel range: %w", err)
	}
	if err := d.writeReg(d.mpu, regIntPinCfg, bypassEnable); err != nil {
		return nil, fmt.Errorf("mpu9250: enable I2C bypass: %w", err)
	}

	if err := d.initMag(); err != nil {
		return nil, err
	}
	log.Printf("mpu9250: mag sensitivity adj: X=%.4f Y=%.4f Z=%.4f", d.adj[0], d.adj[1], d.adj[2])
	return d, nil
}

func (d *MPU9250) initMag() error {
	wia, err := d.readReg(d.mag, regMagWIA)
	if err != nil {
		return fmt.Errorf("ak8963: read WIA: %w", err)
	}
	if wia != magWhoAmI {
		return fmt.Errorf("ak8963: unexpected WIA 0x%02X", wia)
	}

	// sensitivity adjustment values are only readable in fuse ROM mode
	if err := d.setMagMode(magPowerDown); err != nil {
		return err
	}
	if err := d.setMagMode(magFuseROM); err != nil {
		return err
	}
	asa := make([]byte, 3)
	if err := d.mag.Tx([]byte{regMagASAX}, asa); err != nil {
		return fmt.Errorf("ak8963: read ASA: %w", err)
	}
	for i, v := range asa {
		d.adj[i] = (float64(v)-128)/256 + 1
	}
	if err := d.setMagMode(magPowerDown); err != nil {
		return err
	}
	return d.setMagMode(magContinuous)
}

func (d *MPU9250) setMagMode(mode byte) error {
	if err := d.writeReg(d.mag, regMagCNTL1, mode); err != nil {
		return fmt.Errorf("ak8963: set mode 0x%02X: %w", mode, err)
	}
	time.Sleep(modeSwitchDelay)
	return nil
}

// NextRaw reads one accelerometer vector and, when the magnetometer has a
// fresh measurement, a new field vector. Otherwise the previous field is
// repeated.
func (d *MPU9250) NextRaw() (imu.Raw, error) {
	buf := make([]byte, 6)
	if err := d.mpu.Tx([]byte{regAccelXOutH}, buf); err != nil {
		return imu.Raw{}, fmt.Errorf("mpu9250: read accel: %w", err)
	}
	accel := imu.Vector3{
		X: float64(int16(binary.BigEndian.Uint16(buf[0:]))) / accelLSBPerG * standardGravity,
		Y: float64(int16(binary.BigEndian.Uint16(buf[2:]))) / accelLSBPerG * standardGravity,
		Z: float64(int16(binary.BigEndian.Uint16(buf[4:]))) / accelLSBPerG * standardGravity,
	}

	if err := d.readMag(); err != nil {
		return imu.Raw{}, err
	}
	if !d.haveMag {
		return imu.Raw{}, ErrMagNotReady
	}
	return imu.Raw{Source: "mpu9250", Accel: accel, Mag: d.lastMag}, nil
}

func (d *MPU9250) readMag() error {
	st1, err := d.readReg(d.mag, regMagST1)
	if err != nil {
		return fmt.Errorf("ak8963: read ST1: %w", err)
	}
	if st1&magDataReady == 0 {
		return nil
	}

	// reading ST2 ends the measurement cycle
	buf := make([]byte, 7)
	if err := d.mag.Tx([]byte{regMagHXL}, buf); err != nil {
		return fmt.Errorf("ak8963: read data: %w", err)
	}
	if buf[6]&magOverflow != 0 {
		log.Printf("ak8963: magnetic sensor overflow, keeping previous field")
		return nil
	}

	mx := float64(int16(binary.LittleEndian.Uint16(buf[0:]))) * d.adj[0] * magMicroTesla
	my := float64(int16(binary.LittleEndian.Uint16(buf[2:]))) * d.adj[1] * magMicroTesla
	mz := float64(int16(binary.LittleEndian.Uint16(buf[4:]))) * d.adj[2] * magMicroTesla

	// AK8963 X/Y are swapped and Z inverted against the accelerometer axes
	d.lastMag = imu.Vector3{X: my, Y: mx, Z: -mz}
	d.haveMag = true
	return nil
}

func (d *MPU9250) writeReg(dev *i2c.Dev, reg, value byte) error {
	_, err := dev.Write([]byte{reg, value})
	return err
}

func (d *MPU9250) readReg(dev *i2c.Dev, reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// Close releases the bus when it was opened by OpenMPU9250.
func (d *MPU9250) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
