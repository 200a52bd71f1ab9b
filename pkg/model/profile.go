package model

import "strings"

// ProfileFact is a single long-term fact about the user
type ProfileFact struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// Text renders the fact as "key: value"
func (f ProfileFact) Text() string {
	return f.Key + ": " + f.Value
}

// Profile is the user's flat long-term profile
type Profile struct {
	Facts []ProfileFact `yaml:"facts" json:"facts"`
}

// Get returns the value for key
func (p *Profile) Get(key string) (string, bool) {
	for _, f := range p.Facts {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set inserts or replaces a fact, keeping insertion order for existing keys
func (p *Profile) Set(key, value string) {
	for i, f := range p.Facts {
		if f.Key == key {
			p.Facts[i].Value = value
			return
		}
	}
	p.Facts = append(p.Facts, ProfileFact{Key: key, Value: value})
}

// Text renders all facts, one "key: value" per line
func (p *Profile) Text() string {
	if p == nil {
		return ""
	}
	lines := make([]string, 0, len(p.Facts))
	for _, f := range p.Facts {
		lines = append(lines, f.Text())
	}
	return strings.Join(lines, "\n")
}
