package libertyconf

import (
	"slices"

	"pkt.systems/pslog"
)

// Result holds everything discovered by a scan.
type Result struct {
	// Locations are application locations, resolved where possible.
	Locations []string `json:"locations" yaml:"locations" toml:"locations"`

	// Names are declared application names.
	Names []string `json:"names" yaml:"names" toml:"names"`

	// NamelessLocations are locations no document declared a name for.
	NamelessLocations []string `json:"namelessLocations" yaml:"namelessLocations" toml:"namelessLocations"`

	// LocationNames maps locations to their declared names.
	LocationNames map[string]string `json:"locationNames" yaml:"locationNames" toml:"locationNames"`

	// Features are lower-cased feature names.
	Features []string `json:"features" yaml:"features" toml:"features"`

	Properties        map[string]string `json:"properties" yaml:"properties" toml:"properties"`
	DefaultProperties map[string]string `json:"defaultProperties" yaml:"defaultProperties" toml:"defaultProperties"`
	DirProperties     map[string]string `json:"dirProperties" yaml:"dirProperties" toml:"dirProperties"`

	// Documents are locations of all parsed documents.
	Documents []string `json:"documents" yaml:"documents" toml:"documents"`

	// ServerXML is the primary document the scan started from.
	ServerXML string `json:"serverXML" yaml:"serverXML" toml:"serverXML"`

	props  *Properties
	logger pslog.Logger
}

// HasLocation reports whether the location was discovered.
func (r *Result) HasLocation(location string) bool {
	_, ok := slices.BinarySearch(r.Locations, location)
	return ok
}

// Resolve resolves variable references against the scanned property layers.
func (r *Result) Resolve(raw string) Resolution {
	return NewResolver(r.props, r.logger).Resolve(raw)
}

// Merged returns the variable default values overlaid by the properties.
func (r *Result) Merged() map[string]string {
	return r.props.Merged()
}

// Decode decodes the merged properties into a structure. Flat property names
// are matched against conf tags.
func (r *Result) Decode(config any) error {
	return Decode(r.Merged(), config)
}
