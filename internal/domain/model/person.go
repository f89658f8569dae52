// Package model contains domain models passed between layers.
package model

// Skill level bounds, inclusive.
const (
	MinSkillLevel = 1
	MaxSkillLevel = 10
)

// Skill is a named, leveled capability owned by exactly one Person.
// ID and PersonID are assigned by the store.
type Skill struct {
	ID       int64  `json:"Id"`
	Name     string `json:"Name" validate:"notblank"`
	Level    uint8  `json:"Level" validate:"min=1,max=10"`
	PersonID int64  `json:"PersonId"`
}

// Person is an employee record and the owner of its skills.
// Skills keep the order they were submitted in.
type Person struct {
	ID          int64   `json:"Id"`
	Name        string  `json:"Name" validate:"notblank"`
	DisplayName *string `json:"DisplayName"`
	Skills      []Skill `json:"SkillsCollection" validate:"required,dive"`
}

// Clone returns a deep copy of p.
func (p Person) Clone() Person {
	out := p
	if p.DisplayName != nil {
		dn := *p.DisplayName
		out.DisplayName = &dn
	}
	if p.Skills != nil {
		out.Skills = make([]Skill, len(p.Skills))
		copy(out.Skills, p.Skills)
	}
	return out
}

// SameContent reports whether a and b carry the same user-visible data:
// id, name, display name and the ordered skill names and levels.
// Store-assigned skill ids and back-references are ignored.
func SameContent(a, b Person) bool {
	if a.ID != b.ID || a.Name != b.Name {
		return false
	}
	if (a.DisplayName == nil) != (b.DisplayName == nil) {
		return false
	}
	if a.DisplayName != nil && *a.DisplayName != *b.DisplayName {
		return false
	}
	if len(a.Skills) != len(b.Skills) {
		return false
	}
	for i := range a.Skills {
		if a.Skills[i].Name != b.Skills[i].Name || a.Skills[i].Level != b.Skills[i].Level {
			return false
		}
	}
	return true
}

// StringPtr is a small helper for building optional display names.
func StringPtr(s string) *string { return &s }
