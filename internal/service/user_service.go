package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jengzang/streetscore-go/internal/auth"
	"github.com/jengzang/streetscore-go/internal/models"
	"github.com/jengzang/streetscore-go/internal/repository"
)

// UserService handles registration and per-user reads
type UserService struct {
	users      UserStore
	activities ActivityStore
	issuer     *auth.Issuer
}

// NewUserService creates a new user service
func NewUserService(users UserStore, activities ActivityStore, issuer *auth.Issuer) *UserService {
	return &UserService{users: users, activities: activities, issuer: issuer}
}

// RegisterInput is the data needed to register or re-register a user
type RegisterInput struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	AccessToken string `json:"accessToken" binding:"required"`
}

// Register stores the user and returns a signed API token. A new id is
// created by anyone; an existing id can only be updated by a caller already
// authenticated as that user.
func (s *UserService) Register(ctx context.Context, in RegisterInput, callerID string) (*models.User, string, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" || in.Name == "" || in.AccessToken == "" {
		return nil, "", fmt.Errorf("%w: id, name and accessToken are required", ErrInvalidInput)
	}

	user := &models.User{ID: in.ID, Name: in.Name, AccessToken: in.AccessToken}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, "", err
	}
	if !created {
		if callerID != in.ID {
			return nil, "", fmt.Errorf("%w: %s", ErrUserExists, in.ID)
		}
		if err := s.users.Save(ctx, user); err != nil {
			return nil, "", err
		}
	}
	u, err := s.users.Get(ctx, in.ID)
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Activities returns the user's live activities with their coverage
func (s *UserService) Activities(ctx context.Context, userID string) ([]models.ActivityWithCoverage, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
		}
		return nil, err
	}
	return s.activities.ListWithCoverage(ctx, userID)
}
