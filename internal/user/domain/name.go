package domain

import "strings"

// Name is a display name split into first and last parts. There is no middle
// name: everything after the first word belongs to the last name.
type Name struct {
	First string `json:"first_name"`
	Last  string `json:"last_name"`
}

// Full joins the parts back with a single space, omitting an empty last name.
func (n Name) Full() string {
	if n.Last == "" {
		return n.First
	}
	return n.First + " " + n.Last
}

// DecomposeName splits a free-text name on single spaces. The first word is the
// first name and the remaining words, rejoined, are the last name. When name is
// a single word, altLastName (for example a screen name) fills the last name.
// It never fails; an empty name yields an empty first name.
func DecomposeName(name, altLastName string) Name {
	parts := strings.Split(name, " ")
	n := Name{First: parts[0]}
	switch {
	case len(parts) > 1:
		n.Last = strings.Join(parts[1:], " ")
	case altLastName != "":
		n.Last = altLastName
	}
	return n
}
