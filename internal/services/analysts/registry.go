package analysts

import (
	"fmt"
	"sort"

	"FundPilot/internal/domain/service"
	"FundPilot/pkg/logger"
)

// Registry holds the available analysts keyed by identifier.
type Registry struct {
	analysts map[string]service.Analyst
}

// NewRegistry creates a registry with the default analyst lineup.
func NewRegistry(lgr *logger.Logger) *Registry {
	r := &Registry{analysts: make(map[string]service.Analyst)}
	r.Register(NewTechnicalAnalyst(lgr))
	r.Register(NewFundamentalsAnalyst(lgr))
	r.Register(NewSentimentAnalyst(lgr))
	r.Register(NewValuationAnalyst(lgr))
	return r
}

// Register adds an analyst. Later registrations with the same name win.
func (r *Registry) Register(a service.Analyst) {
	r.analysts[a.Name()] = a
}

// Names returns the registered analyst identifiers, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analysts))
	for name := range r.analysts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves the requested analyst names. A nil or empty selection runs
// the full lineup; unknown names are an error rather than silently skipped.
func (r *Registry) Select(names []string) ([]service.Analyst, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	out := make([]service.Analyst, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		a, ok := r.analysts[name]
		if !ok {
			return nil, fmt.Errorf("unknown analyst: %s", name)
		}
		out = append(out, a)
	}
	return out, nil
}
