// Package output writes kstat records and metadata as JSON, YAML or
// a table.
package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	kstat "github.com/illumos/go-kstat"
)

// Format is an output format.
type Format string

const (
	// FormatJSON outputs data as indented JSON.
	FormatJSON Format = "json"
	// FormatYAML outputs data as YAML.
	FormatYAML Format = "yaml"
	// FormatTable outputs records in the parseable style of
	// kstat -p, one module:instance:name:statistic per line, and
	// kstat lists as columns.
	FormatTable Format = "table"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IsUnknown reports whether f is not a supported format.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	default:
		return true
	}
}

// SupportedFormats returns the names of the supported formats.
func SupportedFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatTable),
	}
}

// Writer writes values in one format.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter returns a Writer writing to output, or stdout if output is
// nil. An unknown format falls back to JSON.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		format = FormatJSON
	}
	return &Writer{
		format: format,
		output: output,
	}
}

// NewFileWriterOrStdout returns a Writer that creates and writes to
// path, or writes to stdout if path is empty.
func NewFileWriterOrStdout(format Format, path string) (*Writer, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewWriter(format, os.Stdout), nil
	}
	f, err := os.Create(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := NewWriter(format, f)
	w.closer = f
	return w, nil
}

// Close closes the output file, if there is one.
func (w *Writer) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Format returns the format w writes.
func (w *Writer) Format() Format { return w.format }

// Write writes v.
func (w *Writer) Write(v any) error {
	switch w.format {
	case FormatJSON:
		return w.writeJSON(v)
	case FormatYAML:
		return w.writeYAML(v)
	case FormatTable:
		return w.writeTable(v)
	default:
		return fmt.Errorf("unsupported format: %s", w.format)
	}
}

func (w *Writer) writeJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize to JSON: %w", err)
	}
	b = append(b, '\n')
	_, err = w.output.Write(b)
	return err
}

func (w *Writer) writeYAML(v any) error {
	enc := yaml.NewEncoder(w.output)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to serialize to YAML: %w", err)
	}
	return enc.Close()
}

func (w *Writer) writeTable(v any) error {
	switch t := v.(type) {
	case []kstat.Record:
		for i := range t {
			if err := writeRecord(w.output, &t[i]); err != nil {
				return err
			}
		}
		return nil
	case *kstat.Record:
		return writeRecord(w.output, t)
	case map[string][]kstat.Record:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := w.writeTable(t[k]); err != nil {
				return err
			}
		}
		return nil
	case []kstat.KStat:
		return writeList(w.output, t)
	default:
		_, err := fmt.Fprintln(w.output, v)
		return err
	}
}

// writeRecord writes rec like kstat -p does, with the class, crtime
// and snaptime pseudo-statistics sorted in among the real ones.
func writeRecord(out io.Writer, rec *kstat.Record) error {
	prefix := fmt.Sprintf("%s:%d:%s:", rec.Module, rec.Instance, rec.Name)
	if rec.Error != "" {
		_, err := fmt.Fprintf(out, "%serror\t%s\n", prefix, rec.Error)
		return err
	}
	lines := map[string]string{
		"class":    rec.Class,
		"crtime":   fmt.Sprint(rec.Crtime),
		"snaptime": fmt.Sprint(rec.Snaptime),
	}
	for k, v := range rec.Data {
		lines[k] = v.String()
	}
	keys := make([]string, 0, len(lines))
	for k := range lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(out, "%s%s\t%s\n", prefix, k, lines[k]); err != nil {
			return err
		}
	}
	return nil
}

func writeList(out io.Writer, ks []kstat.KStat) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tINSTANCE\tNAME\tCLASS\tTYPE")
	for _, k := range ks {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", k.Module, k.Instance, k.Name, k.Class, k.Type)
	}
	return tw.Flush()
}
