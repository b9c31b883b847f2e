package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lawrencejr5/igle-rewards-backend/internal/models"
	"github.com/lawrencejr5/igle-rewards-backend/internal/repositories"
)

// Compile-time check to ensure AdminStore implements the interface
var _ repositories.AdminUserRepository = (*AdminStore)(nil)

// AdminStore is the in-memory operator account store.
type AdminStore struct {
	mu    sync.RWMutex
	users map[string]*models.AdminUser // keyed by email
}

// NewAdminStore creates an empty AdminStore
func NewAdminStore() *AdminStore {
	return &AdminStore{users: make(map[string]*models.AdminUser)}
}

// Create inserts a new admin user
func (s *AdminStore) Create(ctx context.Context, user *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	s.users[user.Email] = &copied
	return nil
}

// FindByEmail finds an admin user by email
func (s *AdminStore) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *user
	return &copied, nil
}
