// Package pricetable holds the symbol → price mapping written at the end of
// a run.
package pricetable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places prices are rounded to.
const Places = 6

// Entry is one symbol's row in the output file.
type Entry struct {
	Price float64 `json:"price"`
	Time  int64   `json:"time"`
}

// Table maps symbols to entries and remembers insertion order, which is the
// order keys are written in.
type Table struct {
	order   []string
	entries map[string]Entry
}

func New() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Round rounds the exact binary value of p to Places decimals, so 0.1234565
// (stored as 0.12345649999...) becomes 0.123456.
func Round(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(p, 'f', Places, 64))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// Set records price and time for symbol. Prices are rounded; negative or
// non-finite values are stored as zero.
func (t *Table) Set(symbol string, price float64, timeMillis int64) Entry {
	e := Entry{Price: Round(price), Time: timeMillis}
	if e.Price < 0 {
		e.Price = 0
	}
	if e.Time < 0 {
		e.Time = 0
	}
	t.put(symbol, e)
	return e
}

func (t *Table) put(symbol string, e Entry) {
	if t.entries == nil {
		t.entries = make(map[string]Entry)
	}
	if _, ok := t.entries[symbol]; !ok {
		t.order = append(t.order, symbol)
	}
	t.entries[symbol] = e
}

// Get returns the entry for symbol.
func (t *Table) Get(symbol string) (Entry, bool) {
	e, ok := t.entries[symbol]
	return e, ok
}

// Symbols returns the keys in insertion order.
func (t *Table) Symbols() []string {
	return append([]string(nil), t.order...)
}

func (t *Table) Len() int { return len(t.order) }

// Map returns a copy of the entries.
func (t *Table) Map() map[string]Entry {
	out := make(map[string]Entry, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// MarshalJSON writes an object whose keys follow insertion order. HTML
// characters are not escaped.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, sym := range t.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(sym); err != nil {
			return nil, fmt.Errorf("encode key %q: %w", sym, err)
		}
		buf.Truncate(buf.Len() - 1) // Encode appends a newline
		buf.WriteByte(':')
		if err := enc.Encode(t.entries[sym]); err != nil {
			return nil, fmt.Errorf("encode %s: %w", sym, err)
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object and keeps its key order.
func (t *Table) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("price table: expected object, got %v", tok)
	}
	t.order = nil
	t.entries = make(map[string]Entry)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("price table %s: %w", key, err)
		}
		t.put(key, e)
	}
	_, err = dec.Token()
	return err
}

// WriteFile creates the parent directory and overwrites path with the
// indented table.
func WriteFile(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	raw, err := t.MarshalJSON()
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("indent price table: %w", err)
	}
	out.WriteByte('\n')
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write price table: %w", err)
	}
	return nil
}

// ReadFile loads a table written by WriteFile.
func ReadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price table: %w", err)
	}
	t := New()
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("parse price table %s: %w", path, err)
	}
	return t, nil
}
