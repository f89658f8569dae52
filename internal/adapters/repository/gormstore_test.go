package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
)

const (
	validTestID   int64 = 2
	invalidTestID int64 = 12
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// newTestStore opens a fresh in-memory store seeded with two people,
// two skills each.
func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, WithDriver(DriverSQLite), WithDSN(":memory:"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	seed := []model.Person{
		{ID: 1, Name: "testPerson1", Skills: []model.Skill{
			{Name: "testSkillPerson1", Level: 1},
			{Name: "testSkillPerson2", Level: 2},
		}},
		{ID: validTestID, Name: "testPerson2", Skills: []model.Skill{
			{Name: "testSkillPerson12", Level: 3},
			{Name: "testSkillPerson22", Level: 4},
		}},
	}
	for _, p := range seed {
		if err := store.Create(ctx, p); err != nil {
			t.Fatalf("seed %d: %v", p.ID, err)
		}
	}
	return store
}

func countSkills(t *testing.T, s *GormStore, personID int64) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(&skillRow{}).Where("person_id = ?", personID).Count(&n).Error; err != nil {
		t.Fatalf("count skills: %v", err)
	}
	return n
}

func TestGormStore_GetAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	people, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("expected 2 people, got %d:\n%s", len(people), spew.Sdump(people))
	}

	first := people[0]
	if first.ID != 1 || first.Name != "testPerson1" || first.DisplayName != nil {
		t.Errorf("unexpected first person:\n%s", spew.Sdump(first))
	}
	if len(first.Skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(first.Skills))
	}
	if first.Skills[0].Name != "testSkillPerson1" || first.Skills[0].Level != 1 {
		t.Errorf("unexpected first skill: %+v", first.Skills[0])
	}
	if first.Skills[1].Name != "testSkillPerson2" || first.Skills[1].Level != 2 {
		t.Errorf("unexpected second skill: %+v", first.Skills[1])
	}

	second := people[1]
	if second.ID != validTestID || second.Name != "testPerson2" {
		t.Errorf("unexpected second person:\n%s", spew.Sdump(second))
	}
	if second.Skills[0].Name != "testSkillPerson12" || second.Skills[1].Name != "testSkillPerson22" {
		t.Errorf("skills out of order:\n%s", spew.Sdump(second.Skills))
	}
}

func TestGormStore_GetAllEmpty(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	people, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if people == nil || len(people) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", people)
	}
}

func TestGormStore_GetByID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	person, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if person.Name != "testPerson1" || len(person.Skills) != 2 {
		t.Errorf("unexpected person:\n%s", spew.Sdump(person))
	}
	for _, s := range person.Skills {
		if s.PersonID != 1 {
			t.Errorf("skill %d has back-reference %d, want 1", s.ID, s.PersonID)
		}
		if s.ID == 0 {
			t.Error("skill id was not assigned by the store")
		}
	}

	_, err = store.GetByID(ctx, invalidTestID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGormStore_CreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := model.Person{
		ID:          3,
		Name:        "testPerson3",
		DisplayName: model.StringPtr("Third"),
		Skills: []model.Skill{
			{Name: "zeta", Level: 10},
			{Name: "alpha", Level: 1},
			{Name: "mid", Level: 5},
		},
	}
	if err := store.Create(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := store.GetByID(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !model.SameContent(in, out) {
		t.Errorf("round trip mismatch:\nin:  %s\nout: %s", spew.Sdump(in), spew.Sdump(out))
	}
}

func TestGormStore_CreateIgnoresCallerSkillFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := model.Person{
		ID:   4,
		Name: "testPerson4",
		Skills: []model.Skill{
			{ID: 1, Name: "reused id", Level: 2, PersonID: 999},
		},
	}
	if err := store.Create(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := store.GetByID(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Skills[0].PersonID != 4 {
		t.Errorf("expected back-reference 4, got %d", out.Skills[0].PersonID)
	}
	if out.Skills[0].ID == 1 {
		t.Error("caller supplied skill id was honoured")
	}
}

func TestGormStore_CreateAssignsID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := model.Person{Name: "auto", Skills: []model.Skill{}}
	if err := store.Create(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	people, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := people[len(people)-1]
	if last.Name != "auto" || last.ID <= validTestID {
		t.Errorf("expected store-assigned id after seed rows:\n%s", spew.Sdump(last))
	}
	if len(last.Skills) != 0 {
		t.Errorf("expected no skills, got %d", len(last.Skills))
	}
}

func TestGormStore_CreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	dup := model.Person{ID: validTestID, Name: "intruder", Skills: []model.Skill{{Name: "x", Level: 5}}}
	err := store.Create(ctx, dup)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	existing, err := store.GetByID(ctx, validTestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.Name != "testPerson2" || len(existing.Skills) != 2 {
		t.Errorf("existing row was modified:\n%s", spew.Sdump(existing))
	}
	if n := countSkills(t, store, validTestID); n != 2 {
		t.Errorf("expected 2 skills, got %d", n)
	}
}

func TestGormStore_ConcurrentCreateSameID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const racers = 8
	var (
		wg       sync.WaitGroup
		wins     atomic.Int64
		losses   atomic.Int64
		failures atomic.Int64
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Create(ctx, model.Person{ID: 100, Name: "racer", Skills: []model.Skill{{Name: "run", Level: 7}}})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyExists):
				losses.Add(1)
			default:
				failures.Add(1)
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || losses.Load() != racers-1 || failures.Load() != 0 {
		t.Errorf("expected exactly one winner, got wins=%d losses=%d failures=%d", wins.Load(), losses.Load(), failures.Load())
	}
	if n := countSkills(t, store, 100); n != 1 {
		t.Errorf("expected 1 skill for the winner, got %d", n)
	}
}

func TestGormStore_Update(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := model.Person{
		ID:          validTestID,
		Name:        "renamed",
		DisplayName: model.StringPtr("Renamed"),
		Skills: []model.Skill{
			{Name: "testSkillPerson12", Level: 9},
			{Name: "brand new", Level: 10},
			{Name: "another", Level: 1},
		},
	}
	if err := store.Update(ctx, validTestID, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := store.GetByID(ctx, validTestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !model.SameContent(in, out) {
		t.Errorf("update mismatch:\nin:  %s\nout: %s", spew.Sdump(in), spew.Sdump(out))
	}
	if n := countSkills(t, store, validTestID); n != 3 {
		t.Errorf("expected skill set to be replaced with 3 rows, got %d", n)
	}

	// Clearing the display name writes NULL.
	in.DisplayName = nil
	in.Skills = []model.Skill{}
	if err := store.Update(ctx, validTestID, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err = store.GetByID(ctx, validTestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.DisplayName != nil || len(out.Skills) != 0 {
		t.Errorf("expected cleared display name and skills:\n%s", spew.Sdump(out))
	}

	// The other person is untouched.
	other, err := store.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.Skills) != 2 {
		t.Errorf("expected 2 skills on person 1, got %d", len(other.Skills))
	}
}

func TestGormStore_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Update(ctx, invalidTestID, model.Person{ID: invalidTestID, Name: "ghost", Skills: []model.Skill{{Name: "x", Level: 1}}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := store.GetByID(ctx, invalidTestID); !errors.Is(err, ErrNotFound) {
		t.Errorf("update created a row: %v", err)
	}
	if n := countSkills(t, store, invalidTestID); n != 0 {
		t.Errorf("update created %d orphan skills", n)
	}
}

func TestGormStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	deleted, err := store.Delete(ctx, validTestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted.ID != validTestID || deleted.Name != "testPerson2" || len(deleted.Skills) != 2 {
		t.Errorf("unexpected snapshot:\n%s", spew.Sdump(deleted))
	}

	if _, err := store.GetByID(ctx, validTestID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if n := countSkills(t, store, validTestID); n != 0 {
		t.Errorf("expected skills to be removed, got %d", n)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 person left, got %d", n)
	}
}

func TestGormStore_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Delete(ctx, invalidTestID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected no mutation, got %d people", n)
	}
}

func TestGormStore_LevelCheckConstraint(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Create(ctx, model.Person{ID: 50, Name: "bad level", Skills: []model.Skill{{Name: "x", Level: 11}}})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected for an out-of-range level, got %v", err)
	}

	// The whole transaction rolled back, including the person row.
	if _, err := store.GetByID(ctx, 50); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rollback of person row, got %v", err)
	}

	err = store.Update(ctx, validTestID, model.Person{ID: validTestID, Name: "renamed", Skills: []model.Skill{{Name: "x", Level: 0}}})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected for a zero level, got %v", err)
	}
	existing, err := store.GetByID(ctx, validTestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing.Name != "testPerson2" || len(existing.Skills) != 2 {
		t.Errorf("rejected update was not rolled back:\n%s", spew.Sdump(existing))
	}
}

func TestGormStore_ContextCancellation(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.GetAll(ctx); err == nil {
		t.Error("expected error with cancelled context")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), WithDriver("oracle"))
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestGormStore_Ping(t *testing.T) {
	store := newTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
	if store.Driver() != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", store.Driver())
	}

	var closed GormStore
	if err := closed.Ping(context.Background()); !errors.Is(err, ErrStoreNotOpened) {
		t.Errorf("expected ErrStoreNotOpened, got %v", err)
	}
}

// codedError mimics the sqlite driver error carrying an extended code.
type codedError struct{ code int }

func (e codedError) Error() string { return fmt.Sprintf("sqlite error (%d)", e.code) }
func (e codedError) Code() int     { return e.code }

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Error("nil should stay nil")
	}
	if err := classify(ErrNotFound); !errors.Is(err, ErrNotFound) {
		t.Errorf("sentinel changed: %v", err)
	}
	if err := classify(codedError{code: sqliteConstraintCheck}); !errors.Is(err, ErrRejected) {
		t.Errorf("check failure not rejected: %v", err)
	}
	if err := classify(fmt.Errorf("exec: %w", codedError{code: sqliteConstraintForeignKey})); !errors.Is(err, ErrRejected) {
		t.Errorf("wrapped foreign key failure not rejected: %v", err)
	}
	if err := classify(codedError{code: 5}); errors.Is(err, ErrRejected) {
		t.Errorf("busy error classified as rejection: %v", err)
	}

	other := errors.New("disk on fire")
	err := classify(other)
	if !errors.Is(err, other) || errors.Is(err, ErrRejected) {
		t.Errorf("unexpected classification: %v", err)
	}
}
