package repository

import (
	"context"
	"fmt"

	"wingo/database"
	"wingo/models"
)

// DemoUserRepository implements the DemoUserRepository interface
type DemoUserRepository struct {
	q queryable
}

// NewDemoUserRepository creates a new demo user repository
func NewDemoUserRepository(db *database.DB) *DemoUserRepository {
	return &DemoUserRepository{q: db.Pool}
}

// List returns all demo users
func (r *DemoUserRepository) List(ctx context.Context) ([]*models.DemoUser, error) {
	rows, err := r.q.Query(ctx, `SELECT user_id, created_at FROM demo_users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list demo users: %w", err)
	}
	defer rows.Close()

	var users []*models.DemoUser
	for rows.Next() {
		var user models.DemoUser
		if err := rows.Scan(&user.UserID, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan demo user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate demo users: %w", err)
	}

	return users, nil
}

// Add marks a user as a demo user. Adding an existing demo user is a no-op.
func (r *DemoUserRepository) Add(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO demo_users (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.q.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to add demo user %d: %w", userID, err)
	}
	return nil
}

// Remove unmarks a demo user and reports whether it was marked
func (r *DemoUserRepository) Remove(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM demo_users WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove demo user %d: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}
