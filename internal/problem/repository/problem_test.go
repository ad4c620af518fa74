package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeDB struct {
	problems map[int64]*Problem
	queries  int
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	f.queries++
	id, _ := args[0].(int64)
	problem, ok := f.problems[id]
	if !ok {
		return &fakeRow{err: sql.ErrNoRows}
	}
	return &fakeRow{problem: problem}
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                   { return nil }

type fakeRow struct {
	problem *Problem
	err     error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.problem.ID
	*dest[1].(*string) = r.problem.Title
	*dest[2].(*string) = r.problem.Slug
	*dest[3].(*string) = r.problem.Difficulty
	*dest[4].(*float64) = r.problem.TimeLimitSeconds
	*dest[5].(*int) = r.problem.MemoryLimitMB
	*dest[6].(*int) = r.problem.TestCaseCount
	return nil
}

func newTestRepo(t *testing.T, database *fakeDB) ProblemRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	redisCache, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return NewProblemRepository(database, redisCache)
}

func TestGetByIDCachesHits(t *testing.T) {
	database := &fakeDB{problems: map[int64]*Problem{
		7: {ID: 7, Title: "Two Sum", Slug: "two-sum", Difficulty: "easy", TimeLimitSeconds: 2, MemoryLimitMB: 256, TestCaseCount: 20},
	}}
	repo := newTestRepo(t, database)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if first.Title != "Two Sum" || first.TestCaseCount != 20 {
		t.Fatalf("problem = %+v", first)
	}

	second, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.MemoryLimitMB != 256 {
		t.Fatalf("problem = %+v", second)
	}
	if database.queries != 1 {
		t.Fatalf("db queries = %d, want 1 (second read served from cache)", database.queries)
	}
}

func TestGetByIDCachesMisses(t *testing.T) {
	database := &fakeDB{problems: map[int64]*Problem{}}
	repo := newTestRepo(t, database)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.GetByID(ctx, 404); !errors.Is(err, ErrProblemNotFound) {
			t.Fatalf("get %d: err = %v, want ErrProblemNotFound", i+1, err)
		}
	}
	if database.queries != 1 {
		t.Fatalf("db queries = %d, want 1 (absence is cached)", database.queries)
	}
}

func TestGetByIDValidatesInput(t *testing.T) {
	repo := newTestRepo(t, &fakeDB{problems: map[int64]*Problem{}})
	if _, err := repo.GetByID(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-positive id")
	}
}
