// Package catalog loads shape catalogs: YAML files naming the state shapes
// of an application and the selectors that identify each one.
//
//	current: inbox
//	shapes:
//	  - name: login
//	    selectors: ["#user", "#password"]
//	  - name: inbox
//	    selectors: ["#inbox"]
//
// Files are validated against an embedded CUE schema before decoding, so a
// typo in a key or a shape without selectors is rejected with the CUE
// error path.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/steady/internal/browser"
	"github.com/roach88/steady/internal/resolve"
)

//go:embed schema.cue
var schemaSource string

// Shape is one catalog entry.
type Shape struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Selectors   []string `json:"selectors"`
}

// Catalog is a validated shape catalog.
type Catalog struct {
	// Current is the shape the application is expected to be on, if known.
	Current string  `json:"current,omitempty"`
	Shapes  []Shape `json:"shapes"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse validates YAML catalog data against the schema and decodes it.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("catalog is empty")
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	var cat Catalog
	if err := value.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &cat, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Shapes))
	for _, s := range c.Shapes {
		if seen[s.Name] {
			return fmt.Errorf("shape %q is listed twice", s.Name)
		}
		seen[s.Name] = true
	}
	if c.Current != "" && !seen[c.Current] {
		return fmt.Errorf("current shape %q is not in the catalog", c.Current)
	}
	return nil
}

// Names returns the shape names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Shapes))
	for i, s := range c.Shapes {
		names[i] = s.Name
	}
	return names
}

// Candidates builds one selector candidate per shape, in catalog order.
func (c *Catalog) Candidates() []resolve.Candidate {
	out := make([]resolve.Candidate, len(c.Shapes))
	for i, s := range c.Shapes {
		out[i] = browser.SelectorCandidate(s.Name, s.Selectors...)
	}
	return out
}
