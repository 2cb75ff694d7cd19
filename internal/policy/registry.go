package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/swing-trader/internal/errors"
)

// Registry maps each supported scope to its policy bundle. Registration is
// explicit; resolving an unregistered scope fails before any evaluation runs.
// There is no fallback bundle.
type Registry struct {
	bundles map[Scope]*Bundle
}

// NewRegistry creates an empty policy registry
func NewRegistry() *Registry {
	return &Registry{bundles: make(map[Scope]*Bundle)}
}

// Register adds a bundle for its scope, replacing any previous registration
func (r *Registry) Register(b *Bundle) error {
	if b == nil {
		return fmt.Errorf("nil bundle")
	}
	if b.Hold == nil || b.Exit == nil || b.Entry == nil || b.Hours == nil {
		return fmt.Errorf("bundle for scope %s is incomplete", b.Scope)
	}
	r.bundles[b.Scope] = b
	return nil
}

// Resolve returns the bundle for scope. A missing scope is a fatal
// configuration error identifying the scope, never a silent default.
func (r *Registry) Resolve(scope Scope) (*Bundle, error) {
	b, ok := r.bundles[scope]
	if !ok {
		return nil, errors.NewConfigError("policy", "resolve",
			fmt.Sprintf("no policy bundle registered for scope %s (registered: %v)", scope, r.Scopes()))
	}
	return b, nil
}

// Scopes lists all registered scopes in deterministic order
func (r *Registry) Scopes() []string {
	out := make([]string, 0, len(r.bundles))
	for s := range r.bundles {
		out = append(out, s.String())
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry builds the registry of supported scopes. Any maintenance
// windows apply to every scope's market hours.
func DefaultRegistry(maintenance ...MaintenanceWindow) (*Registry, error) {
	r := NewRegistry()

	hold, err := NewFixedHold(10)
	if err != nil {
		return nil, err
	}
	exit, err := NewSwingExit(DefaultSwingExitParams())
	if err != nil {
		return nil, err
	}
	pyramid, err := NewPyramidEntry(DefaultScalingParams())
	if err != nil {
		return nil, err
	}
	averageDown, err := NewAverageDownEntry(DefaultScalingParams())
	if err != nil {
		return nil, err
	}

	nyse, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	equityHours := NewEquityHours(9*time.Hour+30*time.Minute, 16*time.Hour, nyse, maintenance...)
	cryptoHours := NewContinuousHours(maintenance...)

	bundles := []*Bundle{
		{
			Scope: Scope{Mode: "swing", Market: "us_equity", Instrument: "stock"},
			Hold:  hold, Exit: exit, Entry: pyramid, Hours: equityHours,
		},
		{
			Scope: Scope{Mode: "swing", Market: "us_equity", Instrument: "etf"},
			Hold:  hold, Exit: exit, Entry: averageDown, Hours: equityHours,
		},
		{
			Scope: Scope{Mode: "swing", Market: "crypto", Instrument: "spot"},
			Hold:  hold, Exit: exit, Entry: pyramid, Hours: cryptoHours,
		},
	}
	for _, b := range bundles {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}
