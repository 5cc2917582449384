// Package brokerconfig loads a broker's default Options from a YAML file,
// merging it shallowly over the built-in defaults. The merge distinguishes
// a field explicitly set to its zero value from a field the file omits
// entirely, so that e.g. `sync: false` in a file is honored even though
// false is also Go's zero value for bool.
package brokerconfig

import (
	"os"

	"github.com/odvcencio/arbiter/internal/brokerrors"
	"gopkg.in/yaml.v3"
)

// Options holds the broker-wide defaults merged into every subscribe and
// publish call unless the call site overrides a field itself.
type Options struct {
	Persist               bool    `yaml:"persist"`
	Sync                  bool    `yaml:"sync"`
	PreventBubble         bool    `yaml:"prevent_bubble"`
	Latch                 float64 `yaml:"latch"`
	SettlementLatch       bool    `yaml:"settlement_latch"`
	Semaphore             int     `yaml:"semaphore"`
	UpdateAfterSettlement bool    `yaml:"update_after_settlement"`
	Priority              float64 `yaml:"priority"`
	IgnorePersisted       bool    `yaml:"ignore_persisted"`
}

// Unbounded is the Semaphore value meaning "no concurrency limit" — the
// spec's default of an infinite semaphore.
const Unbounded = 0

// DefaultLatch is 1 - 1e-9, a value just under 1, chosen so
// that the default "all subscribers must fulfill" policy falls through
// the fractional-latch branches of the resolver rather than the
// count-latch branches. See the resolver's latch evaluation for why the
// distinction matters when there are zero subscribers.
const DefaultLatch = 1 - 1e-9

// Default returns the broker's built-in defaults, per the external
// interface's documented defaults.
func Default() Options {
	return Options{
		Persist:               false,
		Sync:                  false,
		PreventBubble:         false,
		Latch:                 DefaultLatch,
		SettlementLatch:       false,
		Semaphore:             Unbounded,
		UpdateAfterSettlement: false,
		Priority:              0,
		IgnorePersisted:       false,
	}
}

// Load reads a YAML file at path and merges it over Default(), returning
// the merged Options. A field absent from the file keeps its default; a
// field present and set to its zero value (e.g. `sync: false`,
// `semaphore: 0`) overrides the default with that zero value.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, brokerrors.Wrap(err, brokerrors.ErrCodeConfigLoad, "reading options file").WithContext("path", path)
	}
	return LoadBytes(data)
}

// LoadBytes parses YAML-encoded bytes and merges them over Default().
func LoadBytes(data []byte) (Options, error) {
	base := Default()

	var override Options
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Options{}, brokerrors.Wrap(err, brokerrors.ErrCodeConfigParse, "parsing options YAML")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Options{}, brokerrors.Wrap(err, brokerrors.ErrCodeConfigParse, "parsing options YAML")
	}

	merge(&base, &override, raw)
	return base, nil
}

func merge(base, override *Options, raw map[string]any) {
	if override == nil {
		return
	}
	if fieldSet(raw, "persist") {
		base.Persist = override.Persist
	}
	if fieldSet(raw, "sync") {
		base.Sync = override.Sync
	}
	if fieldSet(raw, "prevent_bubble") {
		base.PreventBubble = override.PreventBubble
	}
	if fieldSet(raw, "latch") {
		base.Latch = override.Latch
	}
	if fieldSet(raw, "settlement_latch") {
		base.SettlementLatch = override.SettlementLatch
	}
	if fieldSet(raw, "semaphore") {
		base.Semaphore = override.Semaphore
	}
	if fieldSet(raw, "update_after_settlement") {
		base.UpdateAfterSettlement = override.UpdateAfterSettlement
	}
	if fieldSet(raw, "priority") {
		base.Priority = override.Priority
	}
	if fieldSet(raw, "ignore_persisted") {
		base.IgnorePersisted = override.IgnorePersisted
	}
}

// fieldSet reports whether path names a key present in the parsed raw
// YAML document, regardless of its value.
func fieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}

// Merge shallow-merges override over base, applying only the fields in
// set (by Options field name). It is used for per-call options which
// arrive as a sparse struct rather than a parsed document, so presence
// is tracked explicitly by the caller instead of inferred from YAML.
func Merge(base Options, override Options, set map[string]bool) Options {
	if set["persist"] {
		base.Persist = override.Persist
	}
	if set["sync"] {
		base.Sync = override.Sync
	}
	if set["prevent_bubble"] {
		base.PreventBubble = override.PreventBubble
	}
	if set["latch"] {
		base.Latch = override.Latch
	}
	if set["settlement_latch"] {
		base.SettlementLatch = override.SettlementLatch
	}
	if set["semaphore"] {
		base.Semaphore = override.Semaphore
	}
	if set["update_after_settlement"] {
		base.UpdateAfterSettlement = override.UpdateAfterSettlement
	}
	if set["priority"] {
		base.Priority = override.Priority
	}
	if set["ignore_persisted"] {
		base.IgnorePersisted = override.IgnorePersisted
	}
	return base
}

// Validate reports an error for an Options value that cannot be honored,
// such as a negative semaphore bound.
func Validate(o Options) error {
	if o.Semaphore < 0 {
		return brokerrors.New(brokerrors.ErrCodeConfigParse, "semaphore must be >= 0").WithContext("semaphore", o.Semaphore)
	}
	if o.Latch < 0 {
		return brokerrors.New(brokerrors.ErrCodeConfigParse, "latch must be >= 0").WithContext("latch", o.Latch)
	}
	return nil
}
