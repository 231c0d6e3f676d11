package store

import (
	"context"
	"fmt"

	"github.com/smarzola/ldapacl/internal/models"
)

// GetUser retrieves a user by DN
func (s *SQLiteStore) GetUser(ctx context.Context, dn string) (*models.User, error) {
	entry, err := s.GetEntry(ctx, dn)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	if !entry.IsUser() {
		return nil, fmt.Errorf("entry is not a user: %s", dn)
	}

	uid := entry.GetAttribute("uid")
	if uid == "" {
		return nil, fmt.Errorf("user missing uid attribute: %s", dn)
	}

	user := &models.User{
		Entry:    entry,
		UID:      uid,
		Password: entry.GetAttribute("userPassword"),
	}

	return user, nil
}

// CreateUser creates a new user
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.ValidateUser(); err != nil {
		return err
	}

	return s.CreateEntry(ctx, user.Entry)
}

// UpdateUser updates an existing user
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := user.ValidateUser(); err != nil {
		return err
	}

	return s.UpdateEntry(ctx, user.Entry)
}

// DeleteUser deletes a user
func (s *SQLiteStore) DeleteUser(ctx context.Context, dn string) error {
	return s.DeleteEntry(ctx, dn)
}

// SearchUsers searches for users matching a filter
func (s *SQLiteStore) SearchUsers(ctx context.Context, baseDN string, filter string) ([]*models.User, error) {
	entries, err := s.SearchEntries(ctx, baseDN, filter)
	if err != nil {
		return nil, err
	}

	var users []*models.User
	for _, entry := range entries {
		if entry.IsUser() {
			user := &models.User{
				Entry:    entry,
				UID:      entry.GetAttribute("uid"),
				Password: entry.GetAttribute("userPassword"),
			}
			users = append(users, user)
		}
	}

	return users, nil
}
