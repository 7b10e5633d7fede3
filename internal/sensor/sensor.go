// Package sensor reads the CPU temperature from a sysfs thermal zone file.
package sensor

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/process1183/rpi-fanctl/internal/errors"
)

const milliDegreesPerDegree = 1000.0

// Source provides repeated reads of a scalar temperature value.
type Source interface {
	// Read returns the current temperature in degrees Celsius.
	Read() (float64, error)

	// Close releases the underlying resource. Safe to call more than once.
	Close() error
}

// fileSource keeps the thermal zone file open across reads so the polling
// path does not pay open/close overhead several times per second.
type fileSource struct {
	path   string
	file   *os.File
	closed bool
}

// New opens the thermal zone file at path and holds it open for the
// lifetime of the source.
func New(path string) (Source, error) {
	errFactory := errors.New()

	file, err := os.Open(path)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	return &fileSource{path: path, file: file}, nil
}

// Read seeks back to the start of the held-open file and parses its entire
// contents as integer millidegrees Celsius.
func (s *fileSource) Read() (float64, error) {
	errFactory := errors.New()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	data, err := io.ReadAll(s.file)
	if err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	milliDegrees, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrParseFailed, err)
	}

	return float64(milliDegrees) / milliDegreesPerDegree, nil
}

func (s *fileSource) Close() error {
	errFactory := errors.New()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Close(); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}
