// Package trade loads the per-trade inspection checklists and issue label sets.
package trade

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vbonduro/sitecheck/internal/domain"
)

//go:embed trades.yaml
var defaultTrades []byte

type Registry struct {
	trades map[string]domain.Trade
	order  []string
}

// Default returns the registry built from the embedded trades.yaml.
func Default() (*Registry, error) {
	return Parse(defaultTrades)
}

// Load reads a registry from path, or the embedded default when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trades file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var trades []domain.Trade
	if err := yaml.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("failed to parse trades: %w", err)
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("no trades configured")
	}

	r := &Registry{trades: make(map[string]domain.Trade, len(trades))}
	for _, t := range trades {
		if err := validate(t); err != nil {
			return nil, err
		}
		if _, dup := r.trades[t.Name]; dup {
			return nil, fmt.Errorf("trade %q configured twice", t.Name)
		}
		r.trades[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

func validate(t domain.Trade) error {
	if t.Name == "" {
		return fmt.Errorf("trade name required")
	}
	if len(t.Areas) == 0 {
		return fmt.Errorf("trade %q has no areas", t.Name)
	}
	seen := make(map[string]bool, len(t.Areas))
	for _, a := range t.Areas {
		if a == "" {
			return fmt.Errorf("trade %q has an empty area name", t.Name)
		}
		if seen[a] {
			return fmt.Errorf("trade %q lists area %q twice", t.Name, a)
		}
		seen[a] = true
	}
	if !t.HasIssueStatus(t.DefaultIssueStatus) {
		return fmt.Errorf("trade %q: default issue status %q not in label set", t.Name, t.DefaultIssueStatus)
	}
	if !t.HasIssueStatus(t.ResolvedStatus) {
		return fmt.Errorf("trade %q: resolved status %q not in label set", t.Name, t.ResolvedStatus)
	}
	return nil
}

func (r *Registry) Get(name string) (domain.Trade, bool) {
	t, ok := r.trades[name]
	return t, ok
}

// Names returns trade names in configuration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Sorted returns all trades ordered by name.
func (r *Registry) Sorted() []domain.Trade {
	out := make([]domain.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
