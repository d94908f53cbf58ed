package libertyconf

import (
	"maps"
	"runtime"
	"slices"
	"strings"

	"pkt.systems/pslog"
)

// MaxExpansionDepth is the maximum length of a variable chain the Expander
// follows.
const MaxExpansionDepth = 5

type placeholderSyntax struct {
	open  string
	close string
}

var (
	unixSyntax    = placeholderSyntax{"${", "}"}
	windowsSyntax = placeholderSyntax{"!", "!"}
)

// Expander expands ${NAME} placeholders (!NAME! on Windows) in property
// values, the way server scripts expand server.env. Unknown variables and
// circular references are left verbatim.
type Expander struct {
	// GOOS selects the placeholder syntax. The host OS is used when empty.
	GOOS string

	Logger pslog.Logger
}

// NewExpander creates new expander instance.
func NewExpander(logger pslog.Logger) *Expander {
	return &Expander{Logger: logger}
}

// Expand expands the value of the property key.
func (e *Expander) Expand(props map[string]string, key string) string {
	return e.Resolve(props, props[key], key, nil, MaxExpansionDepth)
}

// ExpandAll expands every value of props in place. All values are expanded
// against the unexpanded snapshot.
func (e *Expander) ExpandAll(props map[string]string) {
	snapshot := maps.Clone(props)

	for _, key := range slices.Sorted(maps.Keys(snapshot)) {
		props[key] = e.Resolve(snapshot, snapshot[key], key, nil, MaxExpansionDepth)
	}
}

// Resolve expands placeholders in value. currentKey and the names in
// inProgress are treated as being expanded already; references to them are
// left verbatim. If depth is not positive, value is returned unmodified. At
// depth 1 found values are spliced in without further expansion.
func (e *Expander) Resolve(props map[string]string, value, currentKey string,
	inProgress map[string]struct{}, depth int) string {

	seen := make(map[string]struct{}, len(inProgress)+1)

	for name := range inProgress {
		seen[name] = struct{}{}
	}

	if currentKey != "" {
		seen[currentKey] = struct{}{}
	}

	return e.resolve(props, value, currentKey, seen, depth, e.syntax())
}

func (e *Expander) resolve(props map[string]string, value, currentKey string,
	inProgress map[string]struct{}, depth int, syn placeholderSyntax) string {

	if depth <= 0 {
		e.logger().Warn("expand.depth_exceeded",
			"key", currentKey, "value", value, "max_depth", MaxExpansionDepth)

		return value
	}

	var res strings.Builder
	valueLen := len(value)
	i, j := 0, 0

	for j < valueLen {
		if !strings.HasPrefix(value[j:], syn.open) {
			j++
			continue
		}

		nameStart := j + len(syn.open)
		end := strings.Index(value[nameStart:], syn.close)

		if end < 0 {
			break
		}

		nameEnd := nameStart + end
		tokenEnd := nameEnd + len(syn.close)

		res.WriteString(value[i:j])
		res.WriteString(
			e.substitute(props, value[nameStart:nameEnd], value[j:tokenEnd],
				currentKey, inProgress, depth, syn),
		)

		i, j = tokenEnd, tokenEnd
	}

	res.WriteString(value[i:])

	return res.String()
}

func (e *Expander) substitute(props map[string]string, name, token, currentKey string,
	inProgress map[string]struct{}, depth int, syn placeholderSyntax) string {

	if _, ok := inProgress[name]; ok {
		e.logger().Warn("expand.circular_reference",
			"key", currentKey, "variable", name)

		return token
	}

	value, ok := props[name]

	if !ok {
		return token
	}

	if depth == 1 {
		return value
	}

	next := maps.Clone(inProgress)
	next[name] = struct{}{}

	return e.resolve(props, value, name, next, depth-1, syn)
}

func (e *Expander) syntax() placeholderSyntax {
	goos := e.GOOS

	if goos == "" {
		goos = runtime.GOOS
	}

	if goos == "windows" {
		return windowsSyntax
	}

	return unixSyntax
}

func (e *Expander) logger() pslog.Logger {
	if e.Logger == nil {
		return pslog.NoopLogger()
	}

	return e.Logger
}
