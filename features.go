package libertyconf

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

const (
	featureManagerElement = "featureManager"
	featureElement        = "feature"
)

// Values of the onConflict attribute of include elements.
const (
	OnConflictMerge   = "merge"
	OnConflictReplace = "replace"
	OnConflictIgnore  = "ignore"
)

// featureSet is a set of lower-cased feature names. A nil set means that no
// featureManager section was seen, which differs from an empty section.
type featureSet map[string]struct{}

func (fs featureSet) sorted() []string {
	if fs == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(fs))
}

func (s *Scanner) scanFeatures(ctx context.Context, primary *Document,
	defaults, overrides []*Document) featureSet {

	var result featureSet
	docs := append(slices.Clone(defaults), primary)
	docs = append(docs, overrides...)

	for _, doc := range docs {
		s.chain = []string{doc.Location}
		result = s.documentFeatures(ctx, doc, result)
	}

	return result
}

// documentFeatures walks featureManager and include elements of doc in
// document order and combines their features with result.
func (s *Scanner) documentFeatures(ctx context.Context, doc *Document,
	result featureSet) featureSet {

	if !doc.IsServer() {
		return result
	}

	for _, elem := range doc.Root.ChildElements() {
		switch elem.Tag {
		case featureManagerElement:
			features := parseFeatureManager(elem)

			if result == nil {
				result = features
			} else {
				maps.Copy(result, features)
			}
		case includeElement:
			var included featureSet

			err := s.eachIncludeOf(ctx, doc, elem,
				func(_ *etree.Element, child *Document) error {
					features := s.documentFeatures(ctx, child, nil)
					included = mergeFeatures(included, features, OnConflictMerge)

					return nil
				},
			)

			if err != nil {
				s.logger.Warn("scan.features.include_failed",
					"document", doc.Location, "error", err)

				continue
			}

			result = mergeFeatures(result, included, elem.SelectAttrValue("onConflict", ""))
		}
	}

	return result
}

func parseFeatureManager(elem *etree.Element) featureSet {
	features := make(featureSet)

	for _, feature := range elem.SelectElements(featureElement) {
		name := strings.ToLower(strings.TrimSpace(feature.Text()))

		if name != "" {
			features[name] = struct{}{}
		}
	}

	return features
}

// mergeFeatures combines the features of an included document with the
// features collected so far.
//   - replace: included features replace result, unless there are none
//   - ignore: included features are used only if result is nil
//   - anything else merges both sets
func mergeFeatures(result, features featureSet, onConflict string) featureSet {
	switch strings.ToLower(strings.TrimSpace(onConflict)) {
	case OnConflictReplace:
		if len(features) > 0 {
			return features
		}

		return result
	case OnConflictIgnore:
		if result == nil {
			return features
		}

		return result
	}

	if features == nil {
		return result
	}

	if result == nil {
		return features
	}

	maps.Copy(result, features)

	return result
}
