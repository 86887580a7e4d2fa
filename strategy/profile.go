package strategy

// Profile is the provider-independent shape every adapter normalizes its
// user-info response into.
type Profile struct {
	Provider    string         `json:"provider"`
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Name        *Name          `json:"name,omitempty"`
	Emails      []Value        `json:"emails,omitempty"`
	Photos      []Value        `json:"photos,omitempty"`
	Raw         map[string]any `json:"_json,omitempty"`
}

type Name struct {
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
}

// Value is a single email address or photo URL. Type is optional and
// provider-specific, e.g. "primary" for a GitHub primary email.
type Value struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Email returns the first email of the profile, or "" when there is none.
func (p *Profile) Email() string {
	if p == nil || len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0].Value
}

// Photo returns the first photo URL of the profile, or "" when there is none.
func (p *Profile) Photo() string {
	if p == nil || len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0].Value
}

// Values turns the non-empty strings into profile values, skipping blanks.
func Values(vs ...string) []Value {
	var out []Value
	for _, v := range vs {
		if v == "" {
			continue
		}
		out = append(out, Value{Value: v})
	}
	return out
}
