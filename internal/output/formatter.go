package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/termenv"
)

// Formatter renders entities and entity listings. Entities are generic
// JSON-shaped maps, so column keys use dotted paths into nested objects.
type Formatter interface {
	Print(record map[string]any) error
	PrintList(records []map[string]any, columns []Column) error
	PrintError(err error)
	PrintHint(msg string)
}

// Column defines a column for table/list output
type Column struct {
	Name  string // Display name
	Key   string // Dotted path into the record, e.g. "metadata.name"
	Width int    // Width for rich mode (0 = auto)
}

// New creates a formatter for the specified mode
func New(mode string) Formatter {
	switch mode {
	case "json":
		return &jsonFormatter{}
	case "plain":
		return &plainFormatter{}
	case "rich":
		return &richFormatter{profile: termenv.ColorProfile()}
	default:
		return &plainFormatter{}
	}
}

// NewJSON creates a JSON formatter with optional results-only mode
func NewJSON(resultsOnly bool) Formatter {
	return &jsonFormatter{resultsOnly: resultsOnly}
}

// Field resolves a dotted path inside a record, rendering the leaf as a
// string. Missing segments resolve to "".
func Field(record map[string]any, key string) string {
	var current any = record
	for _, part := range strings.Split(key, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		if current, ok = obj[part]; !ok {
			return ""
		}
	}
	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// flatten renders a record as sorted dotted key/value pairs, leaves only.
func flatten(prefix string, record map[string]any, into map[string]string) {
	for key, value := range record {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(path, nested, into)
			continue
		}
		if value == nil {
			into[path] = ""
			continue
		}
		into[path] = fmt.Sprintf("%v", value)
	}
}

func sortedPairs(record map[string]any) ([]string, map[string]string) {
	pairs := make(map[string]string)
	flatten("", record, pairs)
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, pairs
}

// jsonFormatter outputs JSON to stdout
type jsonFormatter struct {
	resultsOnly bool
}

func (f *jsonFormatter) Print(record map[string]any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func (f *jsonFormatter) PrintList(records []map[string]any, columns []Column) error {
	if records == nil {
		records = []map[string]any{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if f.resultsOnly {
		return enc.Encode(records)
	}
	return enc.Encode(map[string]any{
		"data":  records,
		"count": len(records),
	})
}

func (f *jsonFormatter) PrintError(err error) {
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	enc.Encode(map[string]string{"error": err.Error()})
}

func (f *jsonFormatter) PrintHint(msg string) {
	// Hints are prose, not data; skip them in JSON mode
}

// plainFormatter outputs tab-separated values
type plainFormatter struct{}

func (f *plainFormatter) Print(record map[string]any) error {
	keys, pairs := sortedPairs(record)
	for _, key := range keys {
		fmt.Fprintf(os.Stdout, "%s\t%s\n", key, pairs[key])
	}
	return nil
}

func (f *plainFormatter) PrintList(records []map[string]any, columns []Column) error {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Name
	}
	fmt.Fprintf(os.Stdout, "%s\n", strings.Join(headers, "\t"))

	for _, record := range records {
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = Field(record, col.Key)
		}
		fmt.Fprintf(os.Stdout, "%s\n", strings.Join(values, "\t"))
	}
	return nil
}

func (f *plainFormatter) PrintError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func (f *plainFormatter) PrintHint(msg string) {
	fmt.Fprintf(os.Stderr, "hint: %v\n", msg)
}

// richFormatter outputs styled content for terminal
type richFormatter struct {
	profile termenv.Profile
}

func (f *richFormatter) Print(record map[string]any) error {
	keyStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	keys, pairs := sortedPairs(record)
	for _, key := range keys {
		fmt.Fprintf(os.Stdout, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(pairs[key]))
	}
	return nil
}

func (f *richFormatter) PrintList(records []map[string]any, columns []Column) error {
	rows := make([]map[string]string, len(records))
	for i, record := range records {
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			row[col.Key] = Field(record, col.Key)
		}
		rows[i] = row
	}
	RenderTable(os.Stdout, columns, rows)
	return nil
}

func (f *richFormatter) PrintError(err error) {
	errorStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("9"))
	fmt.Fprintf(os.Stderr, "%s\n", errorStyle.Render("error: "+err.Error()))
}

func (f *richFormatter) PrintHint(msg string) {
	hintStyle := lipgloss.NewStyle().
		Faint(true).
		Foreground(lipgloss.Color("8"))
	fmt.Fprintf(os.Stderr, "%s\n", hintStyle.Render("hint: "+msg))
}
