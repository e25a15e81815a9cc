// Package serialmux provides an abstraction over a serial port with the
// ability for multiple clients to subscribe to framed lines from the port and
// send commands to a single attached sensor device.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

const (
	// scanBufSize is the scanner's initial buffer.
	scanBufSize = 64 * 1024

	// maxLineSize caps a single framed line. A sensor emitting past this is
	// misbehaving; the oversized line is discarded and reading continues.
	maxLineSize = 1 << 20
)

// SerialMux is a generic serial port multiplexer that allows multiple clients
// to subscribe to line events from a single serial port.
type SerialMux[T SerialPorter] struct {
	port         T
	split        bufio.SplitFunc
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving line events from the
	// serial port. The channel ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the serial port.
	SendCommand(string) error
	// Monitor reads lines from the serial port and fans them out to
	// subscribers until the context is cancelled or the port closes.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error
}

// NewSerialMux creates a SerialMux over the given port. Lines are framed with
// the provided split function; a nil split falls back to bufio.ScanLines.
func NewSerialMux[T SerialPorter](port T, split bufio.SplitFunc) *SerialMux[T] {
	if split == nil {
		split = bufio.ScanLines
	}
	return &SerialMux[T]{
		port:        port,
		split:       split,
		subscribers: make(map[string]chan string),
	}
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	// Buffered so a subscriber mid-processing does not immediately lose
	// lines; sustained back-pressure still drops rather than stalling the
	// monitor loop.
	ch := make(chan string, 64)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// SendCommand sends a command to the serial port. Commands are fire and
// forget: the device does not acknowledge them on the data stream.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n" // ensure command ends with a newline
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor monitors the serial port for lines and sends them to subscribers.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Read in a goroutine so the blocking scan.Scan does not interfere with
	// the outer loop awaiting lines and context cancellation.
	go func() {
		defer close(lineChan)
		for {
			scan := bufio.NewScanner(s.port)
			scan.Buffer(make([]byte, scanBufSize), maxLineSize)
			scan.Split(s.split)
			for scan.Scan() {
				select {
				case lineChan <- scan.Text():
				case <-ctx.Done():
					return
				}
			}
			err := scan.Err()
			if errors.Is(err, bufio.ErrTooLong) {
				// Throw away the over-cap line and keep reading with a
				// fresh scanner. The tail of the discarded line arrives
				// as a garbage line and gets rejected downstream.
				log.Printf("serialmux: discarding line longer than %d bytes", maxLineSize)
				continue
			}
			if err != nil {
				select {
				case scanErrChan <- err:
				case <-ctx.Done():
				}
			}
			return
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			// if the channel is closed, we're done reading from the port
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}

			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- line:
				default:
					// if the channel is full/blocking skip so as not to
					// block the outer loop
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	return s.port.Close()
}
