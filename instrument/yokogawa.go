package instrument

// This file contains the driver for the Yokogawa 7651 programmable DC
// source. Programming a level is a two-step exchange: the S command
// stages the value and the E trigger commits it.

import (
	"fmt"

	"github.com/sweepgo/sweepgo/sweep"
)

// Yokogawa7651 is a programmable DC voltage/current source.
type Yokogawa7651 struct {
	name string
	cmd  Commander
}

// NewYokogawa7651 creates a driver named name (the prefix of its
// parameter column names) talking over cmd.
func NewYokogawa7651(name string, cmd Commander) *Yokogawa7651 {
	return &Yokogawa7651{name: name, cmd: cmd}
}

// Volt returns the output level as a settable sweep parameter.
func (y *Yokogawa7651) Volt() sweep.Settable {
	return sweep.SettableFunc(y.name+"_volt", y.SetVolt)
}

// SetVolt programs and triggers a new output level.
func (y *Yokogawa7651) SetVolt(v float64) error {
	if err := y.cmd.Command("S%fE", v); err != nil {
		return fmt.Errorf("failed to program level: %w", err)
	}
	return nil
}

// OutputOn enables the output relay.
func (y *Yokogawa7651) OutputOn() error {
	if err := y.cmd.Command("O1"); err != nil {
		return err
	}
	return y.cmd.Command("E")
}

// OutputOff disables the output relay.
func (y *Yokogawa7651) OutputOff() error {
	if err := y.cmd.Command("O0"); err != nil {
		return err
	}
	return y.cmd.Command("E")
}
