package probe

import (
	"fmt"
	"time"

	"github.com/Ludovic-Lesur/LVRM/internal/client"
	"github.com/Ludovic-Lesur/LVRM/internal/serial"
)

const replyTimeout = 2 * time.Second

// Result represents a board answering on a serial port.
type Result struct {
	Port    string
	Version string
}

// FindBoard tries every available port and returns the first board that
// answers the ping.
func FindBoard(baudRate int) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		result, err := tryPort(portName, baudRate)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no board found (last error: %w)", lastErr)
	}
	return nil, fmt.Errorf("no board found")
}

// ProbePort checks a specific port for a responding board.
func ProbePort(portName string, baudRate int) (*Result, error) {
	return tryPort(portName, baudRate)
}

// ListBoards scans all ports and returns every responding board.
func ListBoards(baudRate int) ([]Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	var results []Result
	for _, portName := range ports {
		result, err := tryPort(portName, baudRate)
		if err != nil {
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// tryPort opens a port and pings it through the AT client.
func tryPort(portName string, baudRate int) (*Result, error) {
	port, err := serial.Open(portName, baudRate)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", portName, err)
	}
	defer port.Close()

	// Reset the board so a hung console comes back before the ping.
	if err := port.PulseReset(); err != nil {
		return nil, fmt.Errorf("failed to reset %s: %w", portName, err)
	}

	c := client.New(port, replyTimeout)
	if err := c.Ping(); err != nil {
		return nil, fmt.Errorf("no answer on %s: %w", portName, err)
	}

	result := &Result{Port: portName}

	// Version is informative only; an old firmware without AT$V? still
	// counts as a board.
	if version, err := c.Version(); err == nil {
		result.Version = version
	}

	return result, nil
}
