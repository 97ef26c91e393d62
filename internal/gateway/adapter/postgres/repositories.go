package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"userapi/internal/domain"
	"userapi/internal/gateway"
)

// UserRepository implements gateway.UserRepository.
type UserRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserRepository wraps db. clock nil means time.Now.
func NewUserRepository(db *gorm.DB, clock func() time.Time) *UserRepository {
	if clock == nil {
		clock = time.Now
	}
	return &UserRepository{db: db, now: clock}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) FindList(ctx context.Context, f domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&userModel{})
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.Username != "" {
		q = q.Where("username LIKE ?", "%"+escapeLike(f.Username)+"%")
	}
	if f.Email != "" {
		q = q.Where("email = ?", f.Email)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var recs []userModel
	err := q.Order("created_at DESC").Order("id").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&recs).Error
	if err != nil {
		return nil, 0, translate(err)
	}

	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.toDomain())
	}
	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, in domain.UserInput) (domain.User, error) {
	now := r.now().UTC()
	rec := userModel{
		ID:         uuid.NewString(),
		Username:   in.Username,
		Email:      optional(in.Email),
		CreatedBy:  optional(in.ModifiedBy),
		CreatedAt:  now,
		ModifiedBy: optional(in.ModifiedBy),
		ModifiedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return rec.toDomain(), nil
}

// Update locks the row, applies the change and returns the stored result
// in one transaction.
func (r *UserRepository) Update(ctx context.Context, id string, in domain.UserInput) (domain.User, error) {
	var rec userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&rec).Error; err != nil {
			return err
		}
		rec.Username = in.Username
		rec.Email = optional(in.Email)
		rec.ModifiedBy = optional(in.ModifiedBy)
		rec.ModifiedAt = r.now().UTC()
		return tx.Model(&rec).Select("username", "email", "modified_by", "modified_at").Updates(&rec).Error
	})
	if err != nil {
		return domain.User{}, translate(err)
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userModel{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gateway.ErrRecordNotFound
	}
	return nil
}

// AuthRepository implements gateway.AuthRepository.
type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) FindByUsername(ctx context.Context, username string) (domain.UserAuth, error) {
	var rec userAuthModel
	err := r.db.WithContext(ctx).
		Table("user_auth ua").
		Select("ua.user_id, ua.password_hash").
		Joins("JOIN users u ON ua.user_id = u.id").
		Where("u.username = ?", username).
		Take(&rec).Error
	if err != nil {
		return domain.UserAuth{}, translate(err)
	}
	return domain.UserAuth{UserID: rec.UserID, PasswordHash: rec.PasswordHash}, nil
}

func (r *AuthRepository) Create(ctx context.Context, a domain.UserAuth) error {
	rec := userAuthModel{UserID: a.UserID, PasswordHash: a.PasswordHash}
	return translate(r.db.WithContext(ctx).Create(&rec).Error)
}

func escapeLike(s string) string {
	r := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}
