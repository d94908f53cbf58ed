package libertyconf

import (
	"maps"

	"github.com/iph0/merger"
)

// Properties is the layered property set of a single scan session.
type Properties struct {
	// Dirs holds the predefined directory properties. Not modified after
	// construction.
	Dirs map[string]string

	// Props holds values from server.env, bootstrap.properties, system
	// properties, variables directories and declared variable values.
	Props map[string]string

	// Defaults holds variable default values declared in configuration
	// documents. Consulted only when Props has no entry.
	Defaults map[string]string

	// keys of Props that were set by a configuration document
	declared map[string]struct{}
}

// NewProperties creates an empty property set on top of the given directory
// properties.
func NewProperties(dirProps map[string]string) *Properties {
	if dirProps == nil {
		dirProps = make(map[string]string)
	}

	return &Properties{
		Dirs:     dirProps,
		Props:    make(map[string]string),
		Defaults: make(map[string]string),
		declared: make(map[string]struct{}),
	}
}

// Set stores a value from an external property source. The last write wins.
func (p *Properties) Set(key, value string) {
	p.Props[key] = value
	delete(p.declared, key)
}

// SetAll stores all values of the map as if Set was called for each of them.
func (p *Properties) SetAll(m map[string]string) {
	for key, value := range m {
		p.Set(key, value)
	}
}

// SetDeclared stores a value declared by a <variable value> element. Values
// from external sources are never overwritten, values declared by earlier
// documents are. Reports whether the value was stored.
func (p *Properties) SetDeclared(key, value string) bool {
	if _, ok := p.Props[key]; ok {
		if _, ok := p.declared[key]; !ok {
			return false
		}
	}

	p.Props[key] = value
	p.declared[key] = struct{}{}

	return true
}

// SetDefault stores a variable default value. The last write wins.
func (p *Properties) SetDefault(key, value string) {
	p.Defaults[key] = value
}

// Value looks up a key in Props, falling back to Defaults.
func (p *Properties) Value(key string) (string, bool) {
	if value, ok := p.Props[key]; ok {
		return value, true
	}

	value, ok := p.Defaults[key]

	return value, ok
}

// Merged returns a new map with Defaults overlaid by Props.
func (p *Properties) Merged() map[string]string {
	iMerged := merger.Merge(maps.Clone(p.Defaults), maps.Clone(p.Props))
	merged, _ := iMerged.(map[string]string)

	if merged == nil {
		merged = make(map[string]string)
	}

	// merger keeps the left value when the right one is empty
	for key, value := range p.Props {
		if value == "" {
			merged[key] = value
		}
	}

	return merged
}

// Clone returns a deep copy of the property set.
func (p *Properties) Clone() *Properties {
	return &Properties{
		Dirs:     maps.Clone(p.Dirs),
		Props:    maps.Clone(p.Props),
		Defaults: maps.Clone(p.Defaults),
		declared: maps.Clone(p.declared),
	}
}
