package libertyconf

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/iph0/merger"
	"pkt.systems/pslog"
)

const (
	includeElement   = "include"
	variableElement  = "variable"
	springBootApp    = "springBootApplication"
	configDropinsDir = "configDropins"
	dropinsDefaults  = "defaults"
	dropinsOverrides = "overrides"
)

var appElements = []string{
	"application",
	"webApplication",
	"enterpriseApplication",
	springBootApp,
}

var errDirMismatch = errors.New("location type does not match the file system entry")

// Scanner discovers application locations, application names and features
// declared by a server configuration document, its includes and its
// configDropins directories. Scanner instance must not be used by several
// goroutines at once.
type Scanner struct {
	opts   Options
	dirs   Dirs
	logger pslog.Logger

	props    *Properties
	resolver *Resolver
	docs     map[string]*Document
	chain    []string

	locations     map[string]struct{}
	names         map[string]struct{}
	locationNames map[string]string
	springBoot    map[*etree.Element]string
	springBootDoc string
}

// NewScanner method creates new scanner instance.
func NewScanner(opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = pslog.NoopLogger()
	}

	if opts.Loaders == nil {
		opts.Loaders = make(map[string]Loader)
	}

	return &Scanner{
		opts:   opts,
		dirs:   opts.Dirs.Normalize(),
		logger: opts.Logger,
	}
}

// Scan method parses the server configuration and returns discovered
// locations, names, features and the final property layers. Property layers
// are built in this order: variable default values of the primary document,
// server.env files, bootstrap properties, system properties, variables
// directories, then variables declared by includes, configDropins/defaults,
// the primary document and configDropins/overrides.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	s.reset()
	defer s.cleanup()

	if s.dirs.ServerXML == "" {
		return nil, fmt.Errorf("%s: neither config directory nor server.xml specified",
			errPref)
	}

	primary, err := s.readFile(s.dirs.ServerXML)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoServerXML, s.dirs.ServerXML)
		}

		return nil, err
	}

	s.declareDefaults(primary)

	sources := NewSourceLoader(s.props, s.logger)
	sources.GOOS = s.opts.GOOS
	sources.Getenv = s.opts.Getenv
	sources.LoadAll(s.dirs, s.opts.SystemProperties)

	defaults := s.dropins(dropinsDefaults)
	overrides := s.dropins(dropinsOverrides)

	if err := s.scanVariables(ctx, primary, defaults, overrides); err != nil {
		return nil, err
	}

	if err := s.scanApplications(ctx, primary, defaults, overrides); err != nil {
		return nil, err
	}

	features := s.scanFeatures(ctx, primary, defaults, overrides)

	return s.result(features), nil
}

func (s *Scanner) scanVariables(ctx context.Context, primary *Document,
	defaults, overrides []*Document) error {

	s.chain = []string{primary.Location}

	if err := s.includeVariables(ctx, primary); err != nil {
		return err
	}

	for _, doc := range defaults {
		s.chain = []string{doc.Location}

		if err := s.includeVariables(ctx, doc); err != nil {
			return err
		}

		s.declareVariables(doc)
	}

	s.declareVariables(primary)

	for _, doc := range overrides {
		s.chain = []string{doc.Location}

		if err := s.includeVariables(ctx, doc); err != nil {
			return err
		}

		s.declareVariables(doc)
	}

	return nil
}

func (s *Scanner) includeVariables(ctx context.Context, doc *Document) error {
	return s.eachInclude(ctx, doc,
		func(_ *etree.Element, child *Document) error {
			if err := s.includeVariables(ctx, child); err != nil {
				return err
			}

			s.declareVariables(child)

			return nil
		},
	)
}

func (s *Scanner) declareDefaults(doc *Document) {
	if !doc.IsServer() {
		return
	}

	for _, elem := range doc.Root.SelectElements(variableElement) {
		name := attrValue(elem, "name")

		if name == "" {
			continue
		}

		if attr := elem.SelectAttr("defaultValue"); attr != nil {
			s.props.SetDefault(name, attr.Value)
		}
	}
}

func (s *Scanner) declareVariables(doc *Document) {
	if !doc.IsServer() {
		return
	}

	for _, elem := range doc.Root.SelectElements(variableElement) {
		name := attrValue(elem, "name")

		if name == "" {
			continue
		}

		if attr := elem.SelectAttr("value"); attr != nil {
			if !s.props.SetDeclared(name, attr.Value) {
				s.logger.Debug("scan.variable.shadowed",
					"variable", name, "document", doc.Location)
			}
		}

		if attr := elem.SelectAttr("defaultValue"); attr != nil {
			s.props.SetDefault(name, attr.Value)
		}
	}
}

func (s *Scanner) scanApplications(ctx context.Context, primary *Document,
	defaults, overrides []*Document) error {

	docs := append([]*Document{primary}, defaults...)
	docs = append(docs, overrides...)

	for _, doc := range docs {
		s.chain = []string{doc.Location}

		if err := s.applications(ctx, doc); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) applications(ctx context.Context, doc *Document) error {
	if err := s.collectApplications(doc); err != nil {
		return err
	}

	return s.eachInclude(ctx, doc,
		func(_ *etree.Element, child *Document) error {
			return s.applications(ctx, child)
		},
	)
}

func (s *Scanner) collectApplications(doc *Document) error {
	if !doc.IsServer() {
		return nil
	}

	docNames := make(map[string]string)

	for _, app := range childElements(doc.Root, appElements...) {
		if app.Tag == springBootApp {
			if _, ok := s.springBoot[app]; !ok {
				if s.springBootDoc != "" {
					return &SpringBootConflictError{
						First:  s.springBootDoc,
						Second: doc.Location,
					}
				}

				s.springBoot[app] = doc.Location
				s.springBootDoc = doc.Location
			}
		}

		rawLoc := attrValue(app, "location")

		if rawLoc == "" {
			s.logger.Debug("scan.application.no_location",
				"element", app.Tag, "document", doc.Location)

			continue
		}

		location := s.resolveAttr(doc, "location", rawLoc)
		s.locations[location] = struct{}{}

		if rawName := attrValue(app, "name"); rawName != "" {
			name := s.resolveAttr(doc, "name", rawName)
			s.names[name] = struct{}{}
			docNames[location] = name
		}
	}

	if merged, ok := merger.Merge(s.locationNames, docNames).(map[string]string); ok {
		s.locationNames = merged
	}

	return nil
}

func (s *Scanner) resolveAttr(doc *Document, attr, raw string) string {
	res := s.resolver.Resolve(raw)

	if !res.OK() {
		s.logger.Debug("scan.attribute.unresolved",
			"attribute", attr,
			"value", raw,
			"variable", res.Variable,
			"outcome", res.Outcome.String(),
			"document", doc.Location,
		)

		return raw
	}

	return res.Value
}

// eachInclude loads documents referenced by the include elements of doc and
// passes them to visit. Includes that would form a cycle with the current
// include chain are skipped.
func (s *Scanner) eachInclude(ctx context.Context, doc *Document,
	visit func(include *etree.Element, child *Document) error) error {

	if !doc.IsServer() {
		return nil
	}

	for _, include := range doc.Root.SelectElements(includeElement) {
		if err := s.eachIncludeOf(ctx, doc, include, visit); err != nil {
			return err
		}
	}

	return nil
}

// eachIncludeOf is eachInclude for a single include element of doc.
func (s *Scanner) eachIncludeOf(ctx context.Context, doc *Document,
	include *etree.Element, visit func(include *etree.Element, child *Document) error) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, child := range s.loadInclude(ctx, doc, include) {
		if slices.Contains(s.chain, child.Location) {
			s.logger.Warn("scan.include.cycle",
				"location", child.Location,
				"document", doc.Location,
				"chain", strings.Join(s.chain, " -> "),
			)

			continue
		}

		s.chain = append(s.chain, child.Location)
		err := visit(include, child)
		s.chain = s.chain[:len(s.chain)-1]

		if err != nil {
			return err
		}
	}

	return nil
}

// loadInclude returns documents referenced by the include element. Failures
// are logged and result in no documents.
func (s *Scanner) loadInclude(ctx context.Context, parent *Document,
	include *etree.Element) []*Document {

	rawLoc := attrValue(include, "location")

	if rawLoc == "" {
		s.logger.Warn("scan.include.no_location", "document", parent.Location)
		return nil
	}

	res := s.resolver.Resolve(rawLoc)

	if !res.OK() {
		s.logIncludeError(rawLoc, parent,
			fmt.Errorf("variable %s is %s", res.Variable, res.Outcome))

		return nil
	}

	loc, err := ParseLocator(res.Value)

	if err != nil {
		s.logIncludeError(rawLoc, parent, err)
		return nil
	}

	var docs []*Document

	if loc.Scheme == SchemeFile {
		docs, err = s.loadFileInclude(loc)
	} else {
		var doc *Document
		doc, err = s.loadRemoteInclude(ctx, loc)

		if doc != nil {
			docs = []*Document{doc}
		}
	}

	if err != nil {
		s.logIncludeError(rawLoc, parent, err)
		return nil
	}

	return docs
}

func (s *Scanner) loadFileInclude(loc *Locator) ([]*Document, error) {
	path := filepath.FromSlash(loc.Value)

	var candidates []string

	if filepath.IsAbs(path) {
		candidates = []string{path}
	} else {
		candidates = []string{
			filepath.Join(s.dirs.ConfigDir, path),
			filepath.Join(filepath.Dir(s.dirs.ServerXML), path),
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)

		if err != nil {
			continue
		}

		if loc.IsDir() != info.IsDir() {
			return nil, fmt.Errorf("%w: %s", errDirMismatch, candidate)
		}

		if info.IsDir() {
			return s.readDir(candidate), nil
		}

		doc, err := s.readFile(candidate)

		if err != nil {
			return nil, err
		}

		return []*Document{doc}, nil
	}

	return nil, fmt.Errorf("%w: %s", os.ErrNotExist, strings.Join(candidates, ", "))
}

func (s *Scanner) loadRemoteInclude(ctx context.Context, loc *Locator) (*Document, error) {
	if doc, ok := s.docs[loc.Raw]; ok {
		return doc, nil
	}

	if loc.IsDir() {
		return nil, fmt.Errorf("directory includes are not supported for %s locations",
			loc.Scheme)
	}

	loader, ok := s.opts.Loaders[loc.Scheme]

	if !ok {
		return nil, fmt.Errorf("no loader registered for scheme %q", loc.Scheme)
	}

	data, err := loader.Load(ctx, loc)

	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(loc.Raw, data)

	if err != nil {
		return nil, err
	}

	s.docs[loc.Raw] = doc

	return doc, nil
}

func (s *Scanner) logIncludeError(rawLoc string, parent *Document, err error) {
	s.logger.Warn("scan.include.skipped",
		"location", rawLoc,
		"document", parent.Location,
		"error", &IncludeError{Location: rawLoc, Parent: parent.Location, Err: err},
	)
}

// dropins returns parsed documents of configDropins/<kind>, sorted by file
// name. The directory under the config directory takes precedence over the
// one next to server.xml.
func (s *Scanner) dropins(kind string) []*Document {
	candidates := []string{
		filepath.Join(s.dirs.ConfigDir, configDropinsDir, kind),
		filepath.Join(filepath.Dir(s.dirs.ServerXML), configDropinsDir, kind),
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return s.readDir(dir)
		}
	}

	return nil
}

// readDir parses XML files of the directory in case-insensitive alphabetical
// order. Files that are not XML are logged and skipped.
func (s *Scanner) readDir(dir string) []*Document {
	entries, err := os.ReadDir(dir)

	if err != nil {
		s.logger.Warn("scan.dir.unreadable", "dir", dir, "error", err)
		return nil
	}

	var files []string

	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}

		files = append(files, name)
	}

	slices.SortFunc(files, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	var docs []*Document

	for _, name := range files {
		doc, err := s.readFile(filepath.Join(dir, name))

		if err != nil {
			s.logger.Warn("scan.document.skipped", "path", filepath.Join(dir, name),
				"error", err)

			continue
		}

		docs = append(docs, doc)
	}

	return docs
}

func (s *Scanner) readFile(path string) (*Document, error) {
	location := canonicalPath(path)

	if doc, ok := s.docs[location]; ok {
		return doc, nil
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	doc, err := ParseDocument(location, data)

	if err != nil {
		return nil, err
	}

	s.docs[location] = doc

	return doc, nil
}

func (s *Scanner) result(features featureSet) *Result {
	nameless := make(map[string]struct{})

	for location := range s.locations {
		if _, ok := s.locationNames[location]; !ok {
			nameless[location] = struct{}{}
		}
	}

	return &Result{
		Locations:         sortedSet(s.locations),
		Names:             sortedSet(s.names),
		NamelessLocations: sortedSet(nameless),
		LocationNames:     maps.Clone(s.locationNames),
		Features:          features.sorted(),
		Properties:        maps.Clone(s.props.Props),
		DefaultProperties: maps.Clone(s.props.Defaults),
		DirProperties:     maps.Clone(s.props.Dirs),
		Documents:         slices.Sorted(maps.Keys(s.docs)),
		ServerXML:         s.dirs.ServerXML,
		props:             s.props.Clone(),
		logger:            s.logger,
	}
}

func (s *Scanner) reset() {
	s.props = NewProperties(s.dirs.DirProperties())
	s.resolver = NewResolver(s.props, s.logger)
	s.docs = make(map[string]*Document)
	s.chain = nil
	s.locations = make(map[string]struct{})
	s.names = make(map[string]struct{})
	s.locationNames = make(map[string]string)
	s.springBoot = make(map[*etree.Element]string)
	s.springBootDoc = ""
}

func (s *Scanner) cleanup() {
	s.props = nil
	s.resolver = nil
	s.docs = nil
	s.chain = nil
	s.locations = nil
	s.names = nil
	s.locationNames = nil
	s.springBoot = nil
}

func sortedSet(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
