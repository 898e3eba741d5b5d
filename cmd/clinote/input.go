package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/ersonp/clinote/internal/domain/entities"
)

// readNote returns the note text from --text, a file argument or stdin,
// in that order.
func readNote(args []string, text string, stdin io.Reader) (string, error) {
	if text != "" && len(args) > 0 {
		return "", errors.New("use either --text or a file argument, not both")
	}

	var data []byte
	var err error
	switch {
	case text != "":
		data = []byte(text)
	case len(args) > 0:
		data, err = readLimited(args[0])
	default:
		data, err = io.ReadAll(io.LimitReader(stdin, MaxInputBytes+1))
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}

	if len(data) > MaxInputBytes {
		return "", fmt.Errorf("input exceeds %d bytes", MaxInputBytes)
	}
	note := strings.TrimSpace(string(data))
	if note == "" {
		return "", errors.New("no text provided (use --text, a file argument or stdin)")
	}
	return note, nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxInputBytes+1))
}

func parseMode(mode string) (entities.RecognitionMode, error) {
	if !slices.Contains(validModes, mode) {
		return "", fmt.Errorf("invalid mode %q, valid modes: %v", mode, validModes)
	}
	return entities.RecognitionMode(mode), nil
}

// writeOutput calls write with the named file, or stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	if path == "" {
		return write(os.Stdout)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	return write(f)
}
