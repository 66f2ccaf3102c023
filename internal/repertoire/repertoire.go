package repertoire

import (
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/repertoire/internal/chess/movetext"
	"github.com/park285/repertoire/internal/chess/tree"
)

var ErrUnknownLine = errors.New("unknown repertoire line")

// Entry is one named pattern of a repertoire file.
type Entry struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	StartFEN string `yaml:"start_fen,omitempty"`
	MaxLines int    `yaml:"max_lines,omitempty"`
}

// File is the on-disk repertoire format:
//
//	wildcard: "__"
//	lines:
//	  - name: Italian
//	    pattern: "1. e4 e5 2. Nf3 Nc6 3. Bc4 __"
type File struct {
	Wildcard string  `yaml:"wildcard,omitempty"`
	Lines    []Entry `yaml:"lines"`
}

// Expanded pairs an entry with its built tree.
type Expanded struct {
	Entry Entry
	Root  *tree.Node
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repertoire %s: %w", path, err)
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse repertoire %s: %w", path, err)
	}
	return f, nil
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.Wildcard) == "" {
		f.Wildcard = movetext.DefaultWildcard
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Validate() error {
	if len(f.Lines) == 0 {
		return errors.New("repertoire has no lines")
	}
	seen := make(map[string]bool, len(f.Lines))
	for i, e := range f.Lines {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return fmt.Errorf("line %d: name required", i+1)
		}
		if seen[name] {
			return fmt.Errorf("duplicate line name %q", name)
		}
		seen[name] = true
		if e.MaxLines < 0 {
			return fmt.Errorf("line %q: max_lines must not be negative", name)
		}
	}
	return nil
}

func (f *File) Find(name string) (Entry, error) {
	for _, e := range f.Lines {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrUnknownLine, name)
}

// Expand builds the tree of one entry. Entry settings come after opts so they
// win over caller defaults.
func (f *File) Expand(e Entry, opts ...tree.Option) (*tree.Node, error) {
	all := append([]tree.Option{}, opts...)
	all = append(all, tree.WithWildcard(f.Wildcard))
	if e.StartFEN != "" {
		all = append(all, tree.WithStartFEN(e.StartFEN))
	}
	if e.MaxLines > 0 {
		all = append(all, tree.WithMaxLines(e.MaxLines))
	}
	root, err := tree.Expand(e.Pattern, all...)
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", e.Name, err)
	}
	return root, nil
}

func (f *File) ExpandAll(opts ...tree.Option) ([]Expanded, error) {
	out := make([]Expanded, 0, len(f.Lines))
	for _, e := range f.Lines {
		root, err := f.Expand(e, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, Expanded{Entry: e, Root: root})
	}
	return out, nil
}
