package serialmux

import (
	"bufio"

	"go.bug.st/serial"
)

// RealSerialPortFactory implements SerialPortFactory over go.bug.st/serial.
type RealSerialPortFactory struct{}

// Open opens the serial device at path with the given options.
func (RealSerialPortFactory) Open(path string, opts PortOptions) (SerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	return serial.Open(path, mode)
}

// NewRealSerialMux creates a SerialMux backed by a port opened through the
// given factory. Production callers pass RealSerialPortFactory; tests inject
// a MockSerialPortFactory to exercise the same construction path.
func NewRealSerialMux(factory SerialPortFactory, path string, opts PortOptions, split bufio.SplitFunc) (*SerialMux[SerialPorter], error) {
	port, err := factory.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewSerialMux[SerialPorter](port, split), nil
}
