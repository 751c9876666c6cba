package rpc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

const (
	// MaxMessageSize caps control-wire messages to 32MB. Screenshot
	// results carry base64 PNG data and routinely run into megabytes.
	MaxMessageSize = 32 * 1024 * 1024
)

// ReadLineMessage reads a single JSON-RPC message delimited by a newline.
func ReadLineMessage(r *bufio.Reader) ([]byte, error) {
	for {
		line, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read message: %w", err)
		}
		if len(line) == 0 {
			return nil, err
		}

		if line[len(line)-1] == '\n' {
			line = line[:len(line)-1]
		}
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if err == io.EOF {
				return nil, err
			}
			continue
		}

		if len(trimmed) > MaxMessageSize {
			return nil, fmt.Errorf("message length %d exceeds maximum %d", len(trimmed), MaxMessageSize)
		}

		return trimmed, nil
	}
}

// WriteLineMessage writes a single JSON-RPC message followed by a newline.
func WriteLineMessage(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("message is empty")
	}
	if bytes.Contains(data, []byte{'\n'}) {
		return fmt.Errorf("message contains embedded newline")
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message length %d exceeds maximum %d", len(data), MaxMessageSize)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}
