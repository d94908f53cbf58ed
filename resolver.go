package libertyconf

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"pkt.systems/pslog"
)

const envPrefix = "env."

var (
	varRe         = regexp.MustCompile(`\$\{(.*?)\}`)
	nonAlnumRe    = regexp.MustCompile(`[^A-Za-z0-9]`)
	backslashRepl = strings.NewReplacer(`\`, "/")
)

// Outcome tells how a variable resolution ended.
type Outcome int

// Resolution outcomes.
const (
	// Resolved means every referenced variable was substituted.
	Resolved Outcome = iota

	// Undefined means a referenced variable has no value in any layer.
	Undefined

	// Circular means a referenced variable refers back to itself.
	Circular
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Undefined:
		return "undefined"
	case Circular:
		return "circular"
	}

	return fmt.Sprintf("outcome(%d)", int(o))
}

// Resolution is the result of resolving a string value. Value holds the
// resolved string when Outcome is Resolved and is empty otherwise. Variable
// names the variable that made resolution fail.
type Resolution struct {
	Value    string
	Outcome  Outcome
	Variable string
}

// OK reports whether the value was fully resolved.
func (r Resolution) OK() bool {
	return r.Outcome == Resolved
}

// Or returns the resolved value, or fallback if resolution failed.
func (r Resolution) Or(fallback string) string {
	if r.OK() {
		return r.Value
	}

	return fallback
}

// Resolver resolves ${NAME} references in configuration attribute values
// against a property set. Unlike Expander it fails the whole value when any
// reference is undefined or circular.
type Resolver struct {
	props  *Properties
	logger pslog.Logger
}

// NewResolver creates new resolver instance.
func NewResolver(props *Properties, logger pslog.Logger) *Resolver {
	if logger == nil {
		logger = pslog.NoopLogger()
	}

	return &Resolver{
		props:  props,
		logger: logger,
	}
}

// Resolve resolves all variable references in raw. Backslashes are converted
// to forward slashes before substitution.
func (r *Resolver) Resolve(raw string) Resolution {
	return r.resolve(raw, nil)
}

// ResolveChain resolves raw treating the variables in chain as being resolved
// already.
func (r *Resolver) ResolveChain(raw string, chain []string) Resolution {
	return r.resolve(raw, slices.Clone(chain))
}

func (r *Resolver) resolve(raw string, chain []string) Resolution {
	value := backslashRepl.Replace(raw)
	matches := varRe.FindAllStringSubmatchIndex(value, -1)

	if len(matches) == 0 {
		return Resolution{Value: value}
	}

	resolved := make(map[string]string)

	for _, m := range matches {
		name := value[m[2]:m[3]]

		if _, ok := resolved[name]; ok {
			continue
		}

		if slices.Contains(chain, name) {
			r.logger.Warn("resolve.circular_reference",
				"variable", name, "chain", strings.Join(chain, " -> "))

			return Resolution{Outcome: Circular, Variable: name}
		}

		varValue, ok := r.Lookup(name)

		if !ok {
			r.logger.Debug("resolve.undefined_variable", "variable", name, "value", raw)

			return Resolution{Outcome: Undefined, Variable: name}
		}

		sub := r.resolve(varValue, append(slices.Clone(chain), name))

		if !sub.OK() {
			return sub
		}

		resolved[name] = backslashRepl.Replace(sub.Value)
	}

	var res strings.Builder
	i := 0

	for _, m := range matches {
		res.WriteString(value[i:m[0]])
		res.WriteString(resolved[value[m[2]:m[3]]])
		i = m[1]
	}

	res.WriteString(value[i:])

	return Resolution{Value: res.String()}
}

// Lookup finds the raw value of a variable. Directory properties are checked
// first, then the property layers with the exact name, with non-alphanumeric
// characters replaced by "_", and with that variation upper-cased. Names
// starting with "env." are finally retried without the prefix.
func (r *Resolver) Lookup(name string) (string, bool) {
	if value, ok := r.props.Dirs[name]; ok {
		return unquote(value), true
	}

	if value, ok := r.props.Value(name); ok {
		return value, true
	}

	variation := nonAlnumRe.ReplaceAllString(name, "_")

	if value, ok := r.props.Value(variation); ok {
		return value, true
	}

	if value, ok := r.props.Value(strings.ToUpper(variation)); ok {
		return value, true
	}

	if len(name) > len(envPrefix) && strings.HasPrefix(name, envPrefix) {
		return r.props.Value(name[len(envPrefix):])
	}

	return "", false
}

func unquote(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value[1 : len(value)-1]
	}

	return value
}
