package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

// Cache keys for public catalog listings.
const (
	CacheKeyDepartments  = "catalog:departments"
	CacheKeyCoordinators = "catalog:coordinators"
	CacheKeyMoocs        = "catalog:moocs"
)

type catalogDepartmentReader interface {
	List(ctx context.Context) ([]models.Department, error)
}

type catalogCoordinatorReader interface {
	ListNames(ctx context.Context) ([]models.CoordinatorName, error)
}

type catalogMoocReader interface {
	ListActive(ctx context.Context) ([]models.Mooc, error)
}

// CatalogService serves read-mostly listings through the Redis cache.
type CatalogService struct {
	departments  catalogDepartmentReader
	coordinators catalogCoordinatorReader
	moocs        catalogMoocReader
	cache        *CacheService
	ttl          time.Duration
	logger       *zap.Logger
}

// NewCatalogService constructs the service. A nil cache reads straight
// from the store.
func NewCatalogService(departments catalogDepartmentReader, coordinators catalogCoordinatorReader, moocs catalogMoocReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{departments: departments, coordinators: coordinators, moocs: moocs, cache: cache, ttl: ttl, logger: logger}
}

// Departments lists every department.
func (s *CatalogService) Departments(ctx context.Context) ([]models.Department, error) {
	var items []models.Department
	err := s.cached(ctx, CacheKeyDepartments, &items, func() (interface{}, error) {
		out, err := s.departments.List(ctx)
		items = out
		return out, err
	})
	if err != nil {
		return nil, storeError(err, "department")
	}
	return nonNil(items), nil
}

// Coordinators lists every coordinator as id and name.
func (s *CatalogService) Coordinators(ctx context.Context) ([]models.CoordinatorName, error) {
	var items []models.CoordinatorName
	err := s.cached(ctx, CacheKeyCoordinators, &items, func() (interface{}, error) {
		out, err := s.coordinators.ListNames(ctx)
		items = out
		return out, err
	})
	if err != nil {
		return nil, storeError(err, "coordinator")
	}
	return nonNil(items), nil
}

// Moocs lists the active MOOC catalog.
func (s *CatalogService) Moocs(ctx context.Context) ([]models.Mooc, error) {
	var items []models.Mooc
	err := s.cached(ctx, CacheKeyMoocs, &items, func() (interface{}, error) {
		out, err := s.moocs.ListActive(ctx)
		items = out
		return out, err
	})
	if err != nil {
		return nil, storeError(err, "mooc")
	}
	return nonNil(items), nil
}

// cached fills dest from the cache, falling back to load and storing its
// result. Cache failures only degrade to a store read.
func (s *CatalogService) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	if hit, _ := s.cache.Get(ctx, key, dest); hit {
		return nil
	}
	value, err := load()
	if err != nil {
		return err
	}
	_ = s.cache.Set(ctx, key, value, s.ttl)
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
