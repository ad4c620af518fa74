package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
)

const (
	defaultProblemCacheTTL      = 30 * time.Minute
	defaultProblemCacheEmptyTTL = 5 * time.Minute
	problemCacheKeyPrefix       = "problem:"
)

var ErrProblemNotFound = errors.New("problem not found")

// Problem holds the metadata the pipeline needs: resource limits for the
// job contract and the title for the status view. Statement content and
// authoring live elsewhere.
type Problem struct {
	ID               int64
	Title            string
	Slug             string
	Difficulty       string
	TimeLimitSeconds float64
	MemoryLimitMB    int
	TestCaseCount    int
}

// ProblemRepository defines read access to problem metadata.
type ProblemRepository interface {
	GetByID(ctx context.Context, problemID int64) (*Problem, error)
}

// MySQLProblemRepository implements ProblemRepository with MySQL plus a
// Redis cache-aside layer.
type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewProblemRepository creates a problem repository with default cache TTLs.
func NewProblemRepository(database db.Database, cacheClient cache.Cache) ProblemRepository {
	return &MySQLProblemRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      defaultProblemCacheTTL,
		emptyTTL: defaultProblemCacheEmptyTTL,
	}
}

const problemColumns = "id, title, slug, difficulty, time_limit_seconds, memory_limit_mb, test_case_count"

// GetByID retrieves problem metadata by id.
func (r *MySQLProblemRepository) GetByID(ctx context.Context, problemID int64) (*Problem, error) {
	if problemID <= 0 {
		return nil, errors.New("problemID is required")
	}
	if r.cache != nil {
		problem, err := cache.GetWithCached[*Problem](
			ctx,
			r.cache,
			problemCacheKey(problemID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(problem *Problem) bool { return problem == nil },
			marshalProblem,
			unmarshalProblem,
			func(ctx context.Context) (*Problem, error) {
				problem, err := r.getByIDFromDB(ctx, problemID)
				if err != nil {
					if errors.Is(err, ErrProblemNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return problem, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if problem == nil {
			return nil, ErrProblemNotFound
		}
		return problem, nil
	}
	return r.getByIDFromDB(ctx, problemID)
}

func (r *MySQLProblemRepository) getByIDFromDB(ctx context.Context, problemID int64) (*Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE id = ? LIMIT 1"
	row := r.db.QueryRow(ctx, query, problemID)
	problem := &Problem{}
	if err := row.Scan(
		&problem.ID,
		&problem.Title,
		&problem.Slug,
		&problem.Difficulty,
		&problem.TimeLimitSeconds,
		&problem.MemoryLimitMB,
		&problem.TestCaseCount,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

func problemCacheKey(problemID int64) string {
	return problemCacheKeyPrefix + strconv.FormatInt(problemID, 10)
}

func marshalProblem(problem *Problem) string {
	if problem == nil {
		return ""
	}
	data, err := json.Marshal(problem)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalProblem(data string) (*Problem, error) {
	if data == "" || data == cache.NullCacheValue {
		return nil, nil
	}
	var problem Problem
	if err := json.Unmarshal([]byte(data), &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}
