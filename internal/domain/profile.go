package domain

import (
	"encoding/json"
)

// Profile is a registrant record as stored under registers/{usn}.
// Timestamps are Unix milliseconds; zero means the field was never written.
type Profile struct {
	USN        string                `json:"usn,omitempty"`
	Name       string                `json:"name,omitempty"`
	GitHub     string                `json:"github,omitempty"`
	Holopin    string                `json:"holopin,omitempty"`
	Phone      string                `json:"phno,omitempty"`
	Password   *string               `json:"password,omitempty"`
	CreatedAt  int64                 `json:"createdAt,omitempty"`
	ModifiedAt int64                 `json:"modifiedAt,omitempty"`
	Repos      map[string]Repository `json:"repos,omitempty"`

	// Extra holds stored fields this service does not model. They are written
	// back unchanged.
	Extra map[string]any `json:"-"`
}

// Repository is one contribution entry under a profile's repos sub-tree
type Repository struct {
	URL       string `json:"url,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	AddedBy   string `json:"addedBy,omitempty"`

	Extra map[string]any `json:"-"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Name    *string
	GitHub  *string
	Holopin *string
	Phone   *string
}

// HasPassword reports whether the profile is edit-protected
func (p Profile) HasPassword() bool {
	return p.Password != nil && *p.Password != ""
}

// ContributionCount is the number of repository entries on the profile
func (p Profile) ContributionCount() int {
	return len(p.Repos)
}

// WithoutRepos returns a copy of the profile with the repos sub-tree dropped
func (p Profile) WithoutRepos() Profile {
	c := p.Clone()
	c.Repos = nil
	return c
}

// Clone returns a deep copy of the profile's maps
func (p Profile) Clone() Profile {
	c := p
	if p.Password != nil {
		pw := *p.Password
		c.Password = &pw
	}
	if p.Repos != nil {
		c.Repos = make(map[string]Repository, len(p.Repos))
		for id, r := range p.Repos {
			c.Repos[id] = r
		}
	}
	if p.Extra != nil {
		c.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Apply merges the supplied fields into p and stamps modifiedAt
func (u ProfileUpdate) Apply(p *Profile, modifiedAt int64) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.GitHub != nil {
		p.GitHub = *u.GitHub
	}
	if u.Holopin != nil {
		p.Holopin = *u.Holopin
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	p.ModifiedAt = modifiedAt
}

// Fields returns the partial-update payload for the remote store
func (u ProfileUpdate) Fields(modifiedAt int64) map[string]any {
	fields := map[string]any{"modifiedAt": modifiedAt}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.GitHub != nil {
		fields["github"] = *u.GitHub
	}
	if u.Holopin != nil {
		fields["holopin"] = *u.Holopin
	}
	if u.Phone != nil {
		fields["phno"] = *u.Phone
	}
	return fields
}

// MarshalJSON writes the modelled fields over any pass-through fields
func (p Profile) MarshalJSON() ([]byte, error) {
	type alias Profile
	return marshalWithExtra(alias(p), p.Extra)
}

// MarshalJSON writes the modelled fields over any pass-through fields
func (r Repository) MarshalJSON() ([]byte, error) {
	type alias Repository
	return marshalWithExtra(alias(r), r.Extra)
}

func marshalWithExtra(known any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(extra)+len(fields))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
