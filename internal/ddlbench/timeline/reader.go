package timeline

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ReadFile parses every non-empty line of the file at path.
func ReadFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		record, err := Parse(line)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s:%d", path, lineNumber)
		}
		records = append(records, record)
	}
	return records, errors.WithStack(scanner.Err())
}

// WriteFile writes records to a new file at path, replacing any existing file.
func WriteFile(path string, records []Record) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
