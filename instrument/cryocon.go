package instrument

// This file contains the driver for the Cryo-con 32B temperature
// controller: per-channel temperature readings and the PID control
// ladder used to walk the cryostat between setpoints. Loop 1 follows
// sensor A, loop 2 follows sensor B.

import (
	"fmt"

	"github.com/gotmc/query"

	"github.com/sweepgo/sweepgo/sweep"
)

// CryoconTransport both commands and queries the controller.
// *prologix.Controller satisfies it.
type CryoconTransport interface {
	Commander
	query.Querier
}

// Cryocon32B is a two-channel cryogenic temperature controller.
type Cryocon32B struct {
	name string
	conn CryoconTransport
}

// NewCryocon32B creates the driver and arms overtemperature protection
// on sensor A.
func NewCryocon32B(name string, conn CryoconTransport) (*Cryocon32B, error) {
	c := &Cryocon32B{name: name, conn: conn}
	for _, cmd := range []string{
		"OVER:SOUR A",
		"OVER:TEMP 310",
		"OVER:ENAB ON",
	} {
		if err := conn.Command(cmd); err != nil {
			return nil, fmt.Errorf("failed to arm overtemp protection: %w", err)
		}
	}
	return c, nil
}

// Temperature reads channel "A" or "B" in kelvin.
func (c *Cryocon32B) Temperature(channel string) (float64, error) {
	v, err := query.Float64(c.conn, fmt.Sprintf("INPUT %s:TEMP?", channel))
	if err != nil {
		return 0, fmt.Errorf("failed to read channel %s temperature: %w", channel, err)
	}
	return v, nil
}

// TempParam returns a channel's temperature as a measurable sweep
// parameter.
func (c *Cryocon32B) TempParam(channel string) sweep.Measurable {
	return sweep.MeasurableFunc(c.name+"_temp_"+channel, func() (float64, error) {
		return c.Temperature(channel)
	})
}

// SetTemp programs both loop setpoints with a fresh PID configuration
// and enables control. The heater range is picked from the larger of
// the current and target channel-A temperatures.
func (c *Cryocon32B) SetTemp(ta, tb float64) error {
	curr, err := c.Temperature("A")
	if err != nil {
		return err
	}

	cmds := []string{
		"LOOP 1:SOURCE A",
		"LOOP 2:SOURCE B",
		"LOOP 1:TABLEIX 1",
		"LOOP 2:TABLEIX 1",
		fmt.Sprintf("LOOP 1:RANGE %s", heaterRange(max(curr, ta))),
		"LOOP 1:TYPE PID",
		"LOOP 1:PGAIN 0.2",
		"LOOP 1:IGAIN 0",
		"LOOP 1:DGAIN 0",
		"LOOP 2:TYPE PID",
		"LOOP 2:PGAIN 0.1",
		"LOOP 2:IGAIN 0",
		"LOOP 2:DGAIN 0",
		fmt.Sprintf("LOOP 1:SETPT %g", ta),
		fmt.Sprintf("LOOP 2:SETPT %g", tb),
	}
	for _, cmd := range cmds {
		if err := c.conn.Command(cmd); err != nil {
			return fmt.Errorf("failed to program setpoints: %w", err)
		}
	}

	if err := c.ControlOn(); err != nil {
		return err
	}

	for _, cmd := range []string{"INPUT A:RESET", "INPUT B:RESET"} {
		if err := c.conn.Command(cmd); err != nil {
			return fmt.Errorf("failed to reset inputs: %w", err)
		}
	}
	return nil
}

// ControlOn enables closed-loop control.
func (c *Cryocon32B) ControlOn() error {
	return c.conn.Command("CONTROL ON")
}

// Stop disables all control loops.
func (c *Cryocon32B) Stop() error {
	return c.conn.Command("STOP")
}

func heaterRange(t float64) string {
	switch {
	case t < 8:
		return "LOW"
	case t < 70:
		return "MID"
	default:
		return "HI"
	}
}
