package service

import (
	"context"

	repository "github.com/okian/halloffame/internal/adapters/repository"
	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
)

// demoPeople is inserted by WithSeed into an empty store.
func demoPeople() []model.Person {
	return []model.Person{
		{
			ID:   1,
			Name: "testPerson1",
			Skills: []model.Skill{
				{Name: "testSkillPerson1", Level: 1},
				{Name: "testSkillPerson2", Level: 2},
			},
		},
		{
			ID:   2,
			Name: "testPerson2",
			Skills: []model.Skill{
				{Name: "testSkillPerson12", Level: 3},
				{Name: "testSkillPerson22", Level: 4},
			},
		},
	}
}

func seedDemoData(ctx context.Context, store repository.Store, log logger.Logger) error {
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug(ctx, "store not empty, skipping seed", logger.Int64("people", n))
		return nil
	}

	people := demoPeople()
	for _, p := range people {
		if err := store.Create(ctx, p); err != nil {
			return err
		}
	}
	log.Info(ctx, "seeded demo data", logger.Int("people", len(people)))
	return nil
}
