package smoke

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/halloffame/internal/domain/model"
)

// maxSkillsPerPerson bounds the generated skill count.
const maxSkillsPerPerson = 4

var skillNames = []string{"go", "sql", "http", "kubernetes", "linux", "testing", "design", "oncall"}

// generatePeople creates n people with unique names and 1..4 random skills.
// Ids are left at zero for the store to assign.
func generatePeople(n int) []model.Person {
	people := make([]model.Person, n)
	for i := range people {
		people[i] = model.Person{
			Name:   "smoke-" + uuid.NewString(),
			Skills: randomSkills(),
		}
		if i%2 == 0 {
			people[i].DisplayName = model.StringPtr("Smoke Person " + uuid.NewString()[:8])
		}
	}
	return people
}

func randomSkills() []model.Skill {
	n := 1 + randomInt(maxSkillsPerPerson)
	skills := make([]model.Skill, n)
	for i := range skills {
		skills[i] = model.Skill{
			Name:  skillNames[randomInt(len(skillNames))],
			Level: uint8(model.MinSkillLevel + randomInt(model.MaxSkillLevel)),
		}
	}
	return skills
}

// randomInt returns a uniform value in [0, n).
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
