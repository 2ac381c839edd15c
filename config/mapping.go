package config

import "fmt"

// Mapping is a pure column-rename table plus a drop set. Mapped columns are
// renamed, unmapped columns pass through unchanged, and columns in the drop
// set are removed unconditionally.
type Mapping struct {
	Renames map[string]string
	Drop    map[string]struct{}
}

// NewMapping builds a Mapping from a rename table and a drop list. Both
// inputs are copied; the result is safe to share.
func NewMapping(renames map[string]string, drop []string) Mapping {
	m := Mapping{
		Renames: make(map[string]string, len(renames)),
		Drop:    make(map[string]struct{}, len(drop)),
	}
	for k, v := range renames {
		m.Renames[k] = v
	}
	for _, d := range drop {
		m.Drop[d] = struct{}{}
	}
	return m
}

// Merge overlays child onto m: child renames shadow the parent's for the
// same raw name, everything else is inherited, and drop sets are unioned.
// Neither input is modified.
func (m Mapping) Merge(child Mapping) Mapping {
	out := Mapping{
		Renames: make(map[string]string, len(m.Renames)+len(child.Renames)),
		Drop:    make(map[string]struct{}, len(m.Drop)+len(child.Drop)),
	}
	for k, v := range m.Renames {
		out.Renames[k] = v
	}
	for k, v := range child.Renames {
		out.Renames[k] = v
	}
	for d := range m.Drop {
		out.Drop[d] = struct{}{}
	}
	for d := range child.Drop {
		out.Drop[d] = struct{}{}
	}
	return out
}

// Resolve maps a raw column name to its output name. The second return is
// false when the column is dropped.
func (m Mapping) Resolve(raw string) (string, bool) {
	if _, dropped := m.Drop[raw]; dropped {
		return "", false
	}
	if renamed, ok := m.Renames[raw]; ok {
		return renamed, true
	}
	return raw, true
}

// TradeMapping resolves the effective trade-column mapping: the configured
// preset (if any) merged with custom renames and the shared drop list.
func (c *Config) TradeMapping() (Mapping, error) {
	return c.buildMapping(c.Columns.TradePreset, c.Columns.TradeRenames)
}

// AlphaMapping resolves the effective alpha-column mapping.
func (c *Config) AlphaMapping() (Mapping, error) {
	return c.buildMapping(c.Columns.AlphaPreset, c.Columns.AlphaRenames)
}

func (c *Config) buildMapping(preset string, renames map[string]string) (Mapping, error) {
	base := NewMapping(nil, nil)
	if preset != "" {
		p, err := Preset(preset)
		if err != nil {
			return Mapping{}, fmt.Errorf("resolve column preset: %w", err)
		}
		base = p
	}
	return base.Merge(NewMapping(renames, c.Columns.Drop)), nil
}
