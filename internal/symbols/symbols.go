package symbols

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Record is one recommendation entry. Only the "symbol" key is read.
type Record map[string]any

// Symbol returns the record's upper-cased symbol, or "" when the key is
// missing, null, empty, zero, false or not a scalar. Numbers keep the form
// they had in the file: integers as written, floats in shortest repr form
// (7203.0, 1E+21). Surrounding whitespace is kept.
func (r Record) Symbol() string {
	var s string
	switch v := r["symbol"].(type) {
	case string:
		s = v
	case json.Number:
		s = formatNumber(v)
	case float64:
		s = formatFloat(v)
	case bool:
		if v {
			s = "true"
		}
	}
	return strings.ToUpper(s)
}

func formatNumber(n json.Number) string {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil && i == 0 {
			return ""
		}
		return n.String()
	}
	f, err := n.Float64()
	if err != nil {
		return ""
	}
	return formatFloat(f)
}

// formatFloat prints the shortest round-trip form, switching to exponent
// notation below 1e-4 and from 1e16 up. Zero and non-finite values yield "".
func formatFloat(f float64) string {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	e := strconv.FormatFloat(f, 'e', -1, 64) // d.ddde±XX
	mant, expPart, _ := strings.Cut(e, "e")
	exp, _ := strconv.Atoi(expPart)
	if exp < -4 || exp >= 16 {
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return fmt.Sprintf("%se%s%02d", mant, sign, exp)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Extract returns the distinct non-empty symbols of records, sorted.
func Extract(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		s := r.Symbol()
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads a JSON array of recommendation objects.
func LoadFile(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recommendations: %w", err)
	}
	records, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("parse recommendations %s: %w", path, err)
	}
	return records, nil
}

// decode accepts only a top-level array of objects. Numbers are kept as
// json.Number so integers and floats stay distinguishable.
func decode(b []byte) ([]Record, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil, errors.New("expected a JSON array of objects")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after array")
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("record %d is null", i)
		}
	}
	return records, nil
}

// Load reads path and extracts its symbols.
func Load(path string) ([]string, error) {
	records, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(records), nil
}
