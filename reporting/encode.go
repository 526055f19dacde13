package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"gopkg.in/yaml.v3"
)

const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFor picks an output format from a file name, falling back to def.
func FormatFor(path, def string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt":
		return FormatText
	}
	return def
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Histogram draws a unicode histogram of values.
func Histogram(w io.Writer, title string, values []float64, bins int) error {
	if len(values) == 0 {
		_, err := fmt.Fprintf(w, "%s: no data\n", title)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return err
	}
	h := histogram.Hist(bins, values)
	return histogram.Fprintf(w, h, histogram.Linear(40), func(v float64) string {
		return fmt.Sprintf("%.3f", v)
	})
}
