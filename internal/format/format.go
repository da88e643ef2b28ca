package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logfmt/logfmt"
)

// OutputFormat represents the format for command output
type OutputFormat string

const (
	// TextFormat is one logfmt line per record (default)
	TextFormat OutputFormat = "text"

	// JSONFormat is an indented JSON array of records
	JSONFormat OutputFormat = "json"

	// PrettyFormat is styled output for terminals
	PrettyFormat OutputFormat = "pretty"
)

// IsValid checks if the output format is valid
func (f OutputFormat) IsValid() bool {
	return f == TextFormat || f == JSONFormat || f == PrettyFormat
}

// String returns the string representation of the output format
func (f OutputFormat) String() string {
	return string(f)
}

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered list of fields. The first field is the record's title
// in pretty output.
type Record []Field

// MarshalJSON encodes the record as an object, keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle   = lipgloss.NewStyle().Faint(true).Width(16)
	blockStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// FormatOutput formats the given records according to the specified format
func FormatOutput(records []Record, format OutputFormat) (string, error) {
	switch format {
	case TextFormat:
		var buf bytes.Buffer
		enc := logfmt.NewEncoder(&buf)
		for _, r := range records {
			for _, f := range r {
				if err := enc.EncodeKeyval(f.Key, f.Value); err != nil {
					return "", fmt.Errorf("failed to encode %s: %w", f.Key, err)
				}
			}
			if err := enc.EndRecord(); err != nil {
				return "", err
			}
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	case JSONFormat:
		if records == nil {
			records = []Record{}
		}
		jsonBytes, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(jsonBytes), nil
	case PrettyFormat:
		blocks := make([]string, 0, len(records))
		for _, r := range records {
			if len(r) == 0 {
				continue
			}
			lines := []string{titleStyle.Render(fmt.Sprint(r[0].Value))}
			for _, f := range r[1:] {
				lines = append(lines, keyStyle.Render(f.Key)+fmt.Sprint(f.Value))
			}
			blocks = append(blocks, blockStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		}
		return strings.Join(blocks, "\n\n"), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
