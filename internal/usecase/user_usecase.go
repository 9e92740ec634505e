package usecase

import (
	"context"
	"time"

	"github.com/iho/pensionledger/internal/domain"
)

// UserUseCase handles user registration and lookup.
type UserUseCase struct {
	userRepo UserRepository
	idGen    IDGenerator
	clock    Clock
}

// NewUserUseCase creates a new user use case. idGen must produce UUIDs.
func NewUserUseCase(userRepo UserRepository, idGen IDGenerator, clock Clock) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		idGen:    idGen,
		clock:    clock,
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	BirthDate time.Time
	FullName  string
	Document  string
}

// CreateUser registers a new user.
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user, err := domain.NewUser(uc.idGen.Generate(), input.FullName, input.Document, input.BirthDate, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

// ListUsers lists users with pagination
func (uc *UserUseCase) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	limit, offset, _ = domain.ValidatePagination(limit, offset)
	return uc.userRepo.List(ctx, limit, offset)
}
