package libertyconf

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Locator schemes understood by the default loaders.
const (
	SchemeFile  = "file"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeMap   = "map"
)

// single letter schemes are Windows drive letters
var schemeRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]+):`)

// Locator is a parsed include location.
type Locator struct {
	// Scheme selects the loader. Plain paths get the file scheme.
	Scheme string

	// Value is the scheme specific part: a file path for the file scheme, the
	// whole URL for http and https, the key for other schemes.
	Value string

	// Raw is the location as written in the configuration document.
	Raw string
}

// ParseLocator parses an include location.
func ParseLocator(rawLoc string) (*Locator, error) {
	if strings.TrimSpace(rawLoc) == "" {
		return nil, fmt.Errorf("%s: empty include location specified", errPref)
	}

	matches := schemeRe.FindStringSubmatch(rawLoc)

	if matches == nil {
		return &Locator{
			Scheme: SchemeFile,
			Value:  rawLoc,
			Raw:    rawLoc,
		}, nil
	}

	scheme := strings.ToLower(matches[1])
	loc := &Locator{
		Scheme: scheme,
		Value:  rawLoc[len(matches[0]):],
		Raw:    rawLoc,
	}

	switch scheme {
	case SchemeHTTP, SchemeHTTPS:
		loc.Value = rawLoc
	case SchemeFile:
		u, err := url.Parse(rawLoc)

		if err != nil {
			return nil, fmt.Errorf("%s: malformed file location %q: %w", errPref, rawLoc, err)
		}

		if u.Opaque != "" {
			loc.Value = u.Opaque
		} else {
			loc.Value = u.Path
		}

		// file:///C:/dir on Windows
		if len(loc.Value) > 2 && loc.Value[0] == '/' && loc.Value[2] == ':' {
			loc.Value = loc.Value[1:]
		}
	}

	if loc.Value == "" {
		return nil, fmt.Errorf("%s: empty location in %q", errPref, rawLoc)
	}

	return loc, nil
}

// IsDir reports whether the location denotes a directory include.
func (l *Locator) IsDir() bool {
	return strings.HasSuffix(l.Raw, "/")
}

// IsRemote reports whether the location is fetched over the network.
func (l *Locator) IsRemote() bool {
	return l.Scheme == SchemeHTTP || l.Scheme == SchemeHTTPS
}

func (l *Locator) String() string {
	return l.Raw
}
