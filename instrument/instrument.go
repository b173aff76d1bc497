// Package instrument provides drivers for the bench instruments driven
// during sweeps, speaking SCPI/ASCII over a Prologix GPIB controller on
// a serial virtual COM port. Drivers expose their knobs and readings as
// sweep parameters; the measurement core never holds a live instrument
// reference, only the parameter's column name.
package instrument

import (
	"fmt"

	"github.com/gotmc/prologix"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// Commander sends a formatted SCPI/ASCII command to an instrument.
// *prologix.Controller satisfies it.
type Commander interface {
	Command(format string, a ...any) error
}

// Connection owns a serial port with a Prologix GPIB
// controller-in-charge on it.
type Connection struct {
	port serial.Port
	gpib *prologix.Controller
}

// Connect opens the serial VCP at portName and configures a Prologix
// controller addressing the instrument at the given GPIB address.
func Connect(portName string, gpibAddr int, opts ...prologix.ControllerOption) (*Connection, error) {
	mode := &serial.Mode{BaudRate: 115200}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	gpib, err := prologix.NewController(port, gpibAddr, false, opts...)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to configure GPIB controller: %w", err),
			port.Close(),
		)
	}

	return &Connection{port: port, gpib: gpib}, nil
}

// Controller returns the underlying Prologix GPIB controller.
func (c *Connection) Controller() *prologix.Controller { return c.gpib }

// Close returns the instrument to local control and releases the port.
func (c *Connection) Close() error {
	err := c.gpib.FrontPanel(true)
	return multierr.Append(err, c.port.Close())
}
