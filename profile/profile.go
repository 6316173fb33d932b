// Package profile checks bags against a BagIt profile, the JSON document
// some preservation partners publish to describe the bags they accept. Only
// the parts of a profile that relate to the bag structures we maintain are
// checked: accepted BagIt versions, required manifest algorithms, and the
// required bag-info tags with their allowed values.
package profile

import (
	"io"

	"github.com/antonholmquist/jason"
	"github.com/pkg/errors"

	"github.com/preservio/bagit/bagit"
)

// A TagRule describes the profile's requirements for one bag-info tag.
type TagRule struct {
	Required bool
	Values   []string // if non-empty, the tag value must be one of these
}

// A Profile is the decoded form of a BagIt profile document.
type Profile struct {
	Identifier        string
	AcceptVersions    []string
	ManifestsRequired []string
	Tags              map[string]TagRule
}

// Load decodes a profile from r. Sections the document omits are left
// empty, which Check treats as unconstrained.
func Load(r io.Reader) (*Profile, error) {
	doc, err := jason.NewObjectFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "profile")
	}
	result := &Profile{Tags: make(map[string]TagRule)}
	result.Identifier, _ = doc.GetString("BagIt-Profile-Info", "BagIt-Profile-Identifier")
	result.AcceptVersions = stringList(doc, "Accept-BagIt-Version")
	result.ManifestsRequired = stringList(doc, "Manifests-Required")

	tags, err := doc.GetObject("Bag-Info")
	if err != nil {
		// no Bag-Info section at all
		return result, nil
	}
	for name := range tags.Map() {
		var rule TagRule
		rule.Required, _ = tags.GetBoolean(name, "required")
		values, err := tags.GetStringArray(name, "values")
		if err == nil {
			rule.Values = values
		}
		result.Tags[name] = rule
	}
	return result, nil
}

func stringList(doc *jason.Object, key string) []string {
	list, err := doc.GetStringArray(key)
	if err != nil {
		return nil
	}
	return list
}

// Check compares the bag against the profile and returns one BagError per
// requirement the bag does not meet. An empty result means the bag
// conforms.
func (p *Profile) Check(b *bagit.Bag) []bagit.BagError {
	var errs []bagit.BagError

	if len(p.AcceptVersions) > 0 && !contains(p.AcceptVersions, b.Version()) {
		errs = append(errs, bagit.BagError{
			Path:    "bagit.txt",
			Message: "Version " + b.Version() + " not accepted by profile.",
		})
	}
	if len(p.ManifestsRequired) > 0 && !contains(p.ManifestsRequired, b.HashEncoding().String()) {
		errs = append(errs, bagit.BagError{
			Path:    "manifest-" + b.HashEncoding().String() + ".txt",
			Message: "Manifest algorithm not accepted by profile.",
		})
	}
	info := b.Info()
	for name, rule := range p.Tags {
		value, ok := info.Get(name)
		if !ok {
			if rule.Required {
				errs = append(errs, bagit.BagError{
					Path:    "bag-info.txt",
					Message: "Required tag " + name + " missing.",
				})
			}
			continue
		}
		if len(rule.Values) > 0 && !contains(rule.Values, value) {
			errs = append(errs, bagit.BagError{
				Path:    "bag-info.txt",
				Message: "Tag " + name + " has value not allowed by profile.",
			})
		}
	}
	return errs
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
