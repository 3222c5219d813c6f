// Package snapshot persists calculator snapshots as TOML documents, one
// [[calculator]] table per calculator:
//
//	[[calculator]]
//	name = "low_pass_rc"
//
//	[[calculator.variable]]
//	name = "r"
//	number = 1000.0
//	direction = "input"
package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/vk/calcgrid/internal/calc"
	"github.com/vk/calcgrid/internal/value"
)

// Document is the on-disk form of one or more snapshots.
type Document struct {
	SavedAt     time.Time    `toml:"saved_at,omitempty"`
	Calculators []Calculator `toml:"calculator"`
}

// Calculator is the on-disk form of calc.Snapshot.
type Calculator struct {
	Name      string     `toml:"name"`
	Variables []Variable `toml:"variable"`
}

// Variable is one entry. Exactly one of Number and Text is set.
type Variable struct {
	Name      string   `toml:"name"`
	Number    *float64 `toml:"number,omitempty"`
	Text      *string  `toml:"text,omitempty"`
	Direction string   `toml:"direction"`
}

// FromCalc converts snapshots into a document stamped with now.
func FromCalc(now time.Time, snaps ...calc.Snapshot) Document {
	doc := Document{SavedAt: now.UTC().Truncate(time.Second)}
	for _, s := range snaps {
		c := Calculator{Name: s.Calculator, Variables: make([]Variable, len(s.Variables))}
		for i, e := range s.Variables {
			v := Variable{Name: e.Name, Direction: e.Direction.String()}
			if e.Value.Kind() == value.KindText {
				text := e.Value.Str()
				v.Text = &text
			} else {
				f := e.Value.Float()
				v.Number = &f
			}
			c.Variables[i] = v
		}
		doc.Calculators = append(doc.Calculators, c)
	}
	return doc
}

// ToCalc converts the document back into snapshots.
func (d Document) ToCalc() ([]calc.Snapshot, error) {
	out := make([]calc.Snapshot, 0, len(d.Calculators))
	for _, c := range d.Calculators {
		s := calc.Snapshot{Calculator: c.Name, Variables: make([]calc.SnapshotEntry, len(c.Variables))}
		for i, v := range c.Variables {
			dir, err := calc.ParseDirection(v.Direction)
			if err != nil {
				return nil, fmt.Errorf("calculator %q, variable %q: %w", c.Name, v.Name, err)
			}
			var val value.Value
			switch {
			case v.Number != nil && v.Text != nil:
				return nil, fmt.Errorf("calculator %q, variable %q: both number and text set", c.Name, v.Name)
			case v.Text != nil:
				val = value.Text(*v.Text)
			case v.Number != nil:
				val = value.Number(*v.Number)
			default:
				val = value.NaN()
			}
			s.Variables[i] = calc.SnapshotEntry{Name: v.Name, Value: val, Direction: dir}
		}
		out = append(out, s)
	}
	return out, nil
}

// Encode writes snapshots to w.
func Encode(w io.Writer, now time.Time, snaps ...calc.Snapshot) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(FromCalc(now, snaps...)); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Decode reads snapshots from r. Unknown keys are rejected.
func Decode(r io.Reader) ([]calc.Snapshot, error) {
	var doc Document
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return doc.ToCalc()
}

// Save writes snapshots to path.
func Save(path string, snaps ...calc.Snapshot) error {
	var buf bytes.Buffer
	if err := Encode(&buf, time.Now(), snaps...); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load reads snapshots from path.
func Load(path string) ([]calc.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Find returns the snapshot of the named calculator.
func Find(snaps []calc.Snapshot, name string) (calc.Snapshot, bool) {
	for _, s := range snaps {
		if s.Calculator == name {
			return s, true
		}
	}
	return calc.Snapshot{}, false
}

// Merge returns snaps with s in place of the first snapshot of the same
// calculator, or appended when there is none. snaps is not modified.
func Merge(snaps []calc.Snapshot, s calc.Snapshot) []calc.Snapshot {
	out := slices.Clone(snaps)
	for i := range out {
		if out[i].Calculator == s.Calculator {
			out[i] = s
			return out
		}
	}
	return append(out, s)
}
