package tag

import "context"

// CategoryScope expands a category id into the ids a filter should match.
type CategoryScope interface {
	Scope(ctx context.Context, id int) ([]int, error)
}

type Service struct {
	repo       Repository
	categories CategoryScope
}

func NewService(repo Repository, categories CategoryScope) *Service {
	return &Service{repo: repo, categories: categories}
}

// List returns every tag, or only those used in categoryID when it is set.
func (s *Service) List(ctx context.Context, categoryID int) ([]Tag, error) {
	if categoryID <= 0 {
		return s.repo.List(ctx)
	}
	ids, err := s.categories.Scope(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Tag{}, nil
	}
	return s.repo.ListByCategories(ctx, ids)
}
