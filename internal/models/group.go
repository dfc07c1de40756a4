package models

import "time"

// Group represents a set of people sharing costs (e.g. "Trip", "Roommates").
// A group owns its expenses; deleting a group deletes them too.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string `validate:"required,max=100"`

	// Members is the ordered list of participant names.
	// Names are not required to be unique.
	Members []string `validate:"dive,required,max=100"`

	// CreatedAt is when the group was created.
	CreatedAt time.Time
}

// HasMember reports whether name is one of the group's members.
func (g *Group) HasMember(name string) bool {
	for _, m := range g.Members {
		if m == name {
			return true
		}
	}
	return false
}
