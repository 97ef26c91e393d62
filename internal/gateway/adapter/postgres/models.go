package postgres

import (
	"time"

	"userapi/internal/domain"
)

type userModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Username   string    `gorm:"column:username"`
	Email      *string   `gorm:"column:email"`
	CreatedBy  *string   `gorm:"column:created_by"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	ModifiedBy *string   `gorm:"column:modified_by"`
	ModifiedAt time.Time `gorm:"column:modified_at"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() domain.User {
	created, modified := m.CreatedAt.UTC(), m.ModifiedAt.UTC()
	return domain.User{
		ID:         m.ID,
		Username:   m.Username,
		Email:      m.Email,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  &created,
		ModifiedBy: m.ModifiedBy,
		ModifiedAt: &modified,
	}
}

type userAuthModel struct {
	UserID       string `gorm:"column:user_id;primaryKey"`
	PasswordHash string `gorm:"column:password_hash"`
}

func (userAuthModel) TableName() string { return "user_auth" }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
