package repository

import "github.com/okian/halloffame/internal/domain/model"

// personRow is the people table.
type personRow struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string     `gorm:"column:name;not null"`
	DisplayName *string    `gorm:"column:display_name"`
	Skills      []skillRow `gorm:"foreignKey:PersonID;references:ID;constraint:OnDelete:CASCADE"`
}

func (personRow) TableName() string { return "people" }

// skillRow is the skills table. Level is range-checked by the database too.
type skillRow struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name     string `gorm:"column:name;not null"`
	Level    uint8  `gorm:"column:level;not null;check:level BETWEEN 1 AND 10"`
	PersonID int64  `gorm:"column:person_id;not null;index"`
}

func (skillRow) TableName() string { return "skills" }

func toRow(p model.Person) personRow {
	row := personRow{
		ID:   p.ID,
		Name: p.Name,
	}
	if p.DisplayName != nil {
		dn := *p.DisplayName
		row.DisplayName = &dn
	}
	row.Skills = make([]skillRow, len(p.Skills))
	for i, s := range p.Skills {
		// Skill ids and back-references always come from the store.
		row.Skills[i] = skillRow{Name: s.Name, Level: s.Level}
	}
	return row
}

func toModel(row personRow) model.Person {
	p := model.Person{
		ID:          row.ID,
		Name:        row.Name,
		DisplayName: row.DisplayName,
		Skills:      make([]model.Skill, len(row.Skills)),
	}
	for i, s := range row.Skills {
		p.Skills[i] = model.Skill{
			ID:       s.ID,
			Name:     s.Name,
			Level:    s.Level,
			PersonID: s.PersonID,
		}
	}
	return p
}
