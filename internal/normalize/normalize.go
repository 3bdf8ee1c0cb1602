// Package normalize turns stored registrant data of any historical layout into
// domain values. All shape detection lives here so callers only ever see
// canonical profiles with a repos mapping.
package normalize

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
)

// UnknownUSN identifies a bare root profile that carries no usn of its own
const UnknownUSN = "unknown"

// legacyRepoKey is the singular key older records used for their repos
const legacyRepoKey = "repo"

// Shape identifies the layout the registrant tree was stored in
type Shape int

const (
	// ShapeEmpty means nothing is stored
	ShapeEmpty Shape = iota
	// ShapeMap is registers/{usn} -> profile
	ShapeMap
	// ShapeNested is registers/user/{usn} -> profile
	ShapeNested
	// ShapeSingle is a bare profile stored directly at registers
	ShapeSingle
)

func (s Shape) String() string {
	switch s {
	case ShapeMap:
		return "map"
	case ShapeNested:
		return "nested"
	case ShapeSingle:
		return "single"
	default:
		return "empty"
	}
}

// Entry is one registrant resolved from the tree
type Entry struct {
	USN     string
	Profile domain.Profile
}

// Registrants is the parsed registrant tree
type Registrants struct {
	Shape   Shape
	Entries []Entry
}

// ParseRegistrants resolves the value stored at the registrants root.
// A non-empty object under the legacy "user" key wins over the root itself.
// Arrays, which the database returns for sequential numeric keys, are read as
// objects keyed by index. Map entries are ordered by key.
func ParseRegistrants(raw any) Registrants {
	root, _ := asObject(raw)

	shape := ShapeMap
	source := root
	if nested, ok := asObject(root[domain.LegacyUserKey]); ok && len(nested) > 0 {
		shape = ShapeNested
		source = nested
	}
	if len(source) == 0 {
		return Registrants{Shape: ShapeEmpty}
	}

	if isSingleProfile(source) {
		p := Profile(source)
		if p.USN == "" {
			p.USN = UnknownUSN
		}
		return Registrants{Shape: ShapeSingle, Entries: []Entry{{USN: p.USN, Profile: p}}}
	}

	entries := make([]Entry, 0, len(source))
	for _, key := range sortedKeys(source) {
		obj, ok := source[key].(map[string]any)
		if !ok {
			continue
		}
		p := Profile(obj)
		if p.USN == "" {
			p.USN = key
		}
		entries = append(entries, Entry{USN: p.USN, Profile: p})
	}
	return Registrants{Shape: shape, Entries: entries}
}

// RootProfile applies the root-path rule: the value stored at the registrants
// root is a match only when it is itself a profile whose usn equals usn.
func RootProfile(raw any, usn string) (domain.Profile, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.Profile{}, false
	}
	if own, ok := usnOf(obj); !ok || own != usn {
		return domain.Profile{}, false
	}
	return Profile(obj), true
}

// FindByUSN scans a flat map of profiles for one whose own usn field equals
// usn and returns its key. Failing that the root rule is applied, reported with
// an empty key.
func FindByUSN(raw any, usn string) (string, domain.Profile, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return "", domain.Profile{}, false
	}
	for _, key := range sortedKeys(obj) {
		child, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		if own, ok := usnOf(child); ok && own == usn {
			return key, Profile(child), true
		}
	}
	if p, ok := RootProfile(obj, usn); ok {
		return "", p, true
	}
	return "", domain.Profile{}, false
}

// Profile converts a stored profile value into its canonical form. Repos come
// from "repos", else the legacy "repo" key, else are empty. Unknown keys are
// kept in Extra. Malformed input yields an empty profile.
func Profile(raw any) domain.Profile {
	p := domain.Profile{Repos: map[string]domain.Repository{}}

	obj, ok := raw.(map[string]any)
	if !ok {
		return p
	}

	for key, v := range obj {
		switch key {
		case "usn":
			p.USN, _ = primitiveString(v)
		case "name":
			p.Name, _ = primitiveString(v)
		case "github":
			p.GitHub, _ = primitiveString(v)
		case "holopin":
			p.Holopin, _ = primitiveString(v)
		case "phno":
			p.Phone, _ = primitiveString(v)
		case "password":
			if s, ok := primitiveString(v); ok {
				p.Password = &s
			}
		case "createdAt":
			p.CreatedAt = millis(v)
		case "modifiedAt":
			p.ModifiedAt = millis(v)
		case domain.ReposKey, legacyRepoKey:
			// resolved below
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = v
		}
	}

	repos, ok := obj[domain.ReposKey]
	if !ok || repos == nil {
		repos = obj[legacyRepoKey]
	}
	p.Repos = Repositories(repos)
	return p
}

// Repositories converts a stored repos collection. Arrays, which the database
// returns for sequential numeric keys, are keyed by index.
func Repositories(raw any) map[string]domain.Repository {
	repos := map[string]domain.Repository{}
	switch t := raw.(type) {
	case map[string]any:
		for id, v := range t {
			repos[id] = repository(v)
		}
	case []any:
		for i, v := range t {
			if v != nil {
				repos[strconv.Itoa(i)] = repository(v)
			}
		}
	}
	return repos
}

func repository(raw any) domain.Repository {
	var r domain.Repository
	obj, ok := raw.(map[string]any)
	if !ok {
		return r
	}
	for key, v := range obj {
		switch key {
		case "url":
			r.URL, _ = primitiveString(v)
		case "createdAt":
			r.CreatedAt = millis(v)
		case "addedBy":
			r.AddedBy, _ = primitiveString(v)
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]any)
			}
			r.Extra[key] = v
		}
	}
	return r
}

// isSingleProfile reports whether obj is one bare profile: apart from its
// repos, no value is an object
func isSingleProfile(obj map[string]any) bool {
	for key, v := range obj {
		if key == domain.ReposKey || key == legacyRepoKey {
			continue
		}
		if _, isObj := v.(map[string]any); isObj {
			return false
		}
	}
	return true
}

// asObject returns v as an object. Arrays become objects keyed by index with
// their null slots left out.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		obj := make(map[string]any, len(t))
		for i, child := range t {
			if child != nil {
				obj[strconv.Itoa(i)] = child
			}
		}
		return obj, true
	default:
		return nil, false
	}
}

func usnOf(obj map[string]any) (string, bool) {
	s, ok := primitiveString(obj["usn"])
	return s, ok && s != ""
}

func primitiveString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil, map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

func millis(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// sortedKeys orders index-like keys numerically ahead of the rest, which
// are ordered lexically
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iNum := arrayIndex(keys[i])
		nj, jNum := arrayIndex(keys[j])
		switch {
		case iNum && jNum:
			return ni < nj
		case iNum != jNum:
			return iNum
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func arrayIndex(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 || strconv.Itoa(n) != key {
		return 0, false
	}
	return n, true
}
