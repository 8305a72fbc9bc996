package category

import "context"

// Service provides business logic for categories.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Tree returns available root categories with their available subcategories.
func (s *Service) Tree(ctx context.Context) ([]Item, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	children := map[int][]Sub{}
	for _, c := range all {
		if c.ParentID != nil && c.Available {
			children[*c.ParentID] = append(children[*c.ParentID], Sub{ID: c.ID, Title: c.Title, Image: publicImage(c.Image)})
		}
	}

	out := make([]Item, 0)
	for _, c := range all {
		if c.ParentID != nil || !c.Available {
			continue
		}
		subs := children[c.ID]
		if subs == nil {
			subs = []Sub{}
		}
		out = append(out, Item{ID: c.ID, Title: c.Title, Image: publicImage(c.Image), Subcategories: subs})
	}
	return out, nil
}

// Scope resolves the category ids a filter on id covers: the subcategories
// of a root category, or the category itself.
func (s *Service) Scope(ctx context.Context, id int) ([]int, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ParentID != nil {
		return []int{c.ID}, nil
	}

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0)
	for _, sub := range all {
		if sub.ParentID != nil && *sub.ParentID == c.ID {
			ids = append(ids, sub.ID)
		}
	}
	return ids, nil
}

// Favorites returns up to limit available favourite categories.
func (s *Service) Favorites(ctx context.Context, limit int) ([]Category, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Category, 0, limit)
	for _, c := range all {
		if c.Favorite && c.Available {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
