package user

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrPhoneExists        = errors.New("phone already exists")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type Repository interface {
	GetByID(ctx context.Context, id int) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	SetPassword(ctx context.Context, id int, hash string) error
	Deactivate(ctx context.Context, id int) error
}

// InMemoryRepository backs tests and local scenarios. It enforces the same
// uniqueness rules as the database schema.
type InMemoryRepository struct {
	mu     sync.RWMutex
	users  []User
	nextID int
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:  make([]User, 0, len(seed)),
		nextID: 1,
	}

	maxID := 0
	for _, u := range seed {
		repo.users = append(repo.users, u)
		if u.ID > maxID {
			maxID = u.ID
		}
	}

	repo.nextID = maxID + 1
	return repo
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflict(u); err != nil {
		return User{}, err
	}
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users = append(r.users, u)
	return u, nil
}

func (r *InMemoryRepository) Update(_ context.Context, upd User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflict(upd); err != nil {
		return User{}, err
	}
	for i, u := range r.users {
		if u.ID == upd.ID {
			u.FirstName = upd.FirstName
			u.LastName = upd.LastName
			u.Email = upd.Email
			u.Phone = upd.Phone
			u.AvatarSrc = upd.AvatarSrc
			u.AvatarAlt = upd.AvatarAlt
			u.UpdatedAt = time.Now()
			r.users[i] = u
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) SetPassword(_ context.Context, id int, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].PasswordHash = hash
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) Deactivate(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].Available = false
			return nil
		}
	}
	return ErrNotFound
}

// conflict must be called with the lock held.
func (r *InMemoryRepository) conflict(u User) error {
	for _, other := range r.users {
		if other.ID == u.ID && u.ID != 0 {
			continue
		}
		switch {
		case other.Username == u.Username && u.Username != "" && u.ID == 0:
			return ErrUsernameExists
		case u.Email != "" && other.Email == u.Email:
			return ErrEmailExists
		case u.Phone != "" && other.Phone == u.Phone:
			return ErrPhoneExists
		}
	}
	return nil
}
