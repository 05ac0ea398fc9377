// Package scenario runs hand-written stamp expectations from YAML files.
//
// A scenario file names a list of cases. Each case applies one operation to
// stamps written in the debug text format and states the expected outcome:
//
//	name: integer add
//	cases:
//	  - name: ranges add pointwise
//	    op: add
//	    args: ["i32 [1 - 10]", "i32 [100 - 200]"]
//	    expect: "i32 [101 - 210]"
//
// Operations are any arithmetic operator name, the lattice operations meet,
// join and improve, the queries contains and as-constant, and the overflow
// predicates add-overflows, sub-overflows, mul-overflows, neg-overflows and
// convert-overflows.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrInvalid reports a scenario file that does not describe runnable cases.
var ErrInvalid = errors.New("scenario: invalid file")

// ExpectError is the expectation for cases whose operation must be rejected.
const ExpectError = "error"

// ExpectNoConstant is the as-constant expectation for stamps with several values.
const ExpectNoConstant = "no-constant"

// File is one decoded scenario file.
type File struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`

	// Path is where the file was loaded from, empty for in-memory input.
	Path string `yaml:"-"`
}

// Case is a single operation and its expected outcome.
type Case struct {
	Name string   `yaml:"name"`
	Op   string   `yaml:"op"`
	Args []string `yaml:"args"`
	// Bits is the result width of integer conversions.
	Bits   int    `yaml:"bits,omitempty"`
	Expect string `yaml:"expect"`
}

// Load reads and validates the scenario file at path.
func Load(path string) (*File, error) {
	// #nosec G304 -- scenario paths are supplied by the user on purpose
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Decode parses a scenario document. Unknown fields are rejected so that a
// misspelled key does not silently drop an expectation.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

// normalize trims and NFC-normalizes names and rejects duplicates, so two
// spellings of the same accented name are caught as the same case.
func (f *File) normalize() error {
	f.Name = norm.NFC.String(strings.TrimSpace(f.Name))
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(f.Cases) == 0 {
		return fmt.Errorf("%w: %s has no cases", ErrInvalid, f.Name)
	}
	seen := make(map[string]int, len(f.Cases))
	for i := range f.Cases {
		c := &f.Cases[i]
		c.Name = norm.NFC.String(strings.TrimSpace(c.Name))
		c.Op = strings.ToLower(strings.TrimSpace(c.Op))
		c.Expect = strings.TrimSpace(c.Expect)
		switch {
		case c.Name == "":
			return fmt.Errorf("%w: case %d has no name", ErrInvalid, i+1)
		case c.Op == "":
			return fmt.Errorf("%w: case %q has no op", ErrInvalid, c.Name)
		case c.Expect == "":
			return fmt.Errorf("%w: case %q has no expectation", ErrInvalid, c.Name)
		}
		if prev, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: case %q repeats case %d", ErrInvalid, c.Name, prev+1)
		}
		seen[c.Name] = i
	}
	return nil
}
