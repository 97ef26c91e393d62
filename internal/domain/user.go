package domain

import (
	"math"
	"time"
)

// User is a managed account. Audit fields hold the subject of the acting token.
type User struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      *string    `json:"email"`
	CreatedBy  *string    `json:"created_by"`
	CreatedAt  *time.Time `json:"created_at"`
	ModifiedBy *string    `json:"modified_by"`
	ModifiedAt *time.Time `json:"modified_at"`
}

// UserAuth is the stored credential for a user.
type UserAuth struct {
	UserID       string
	PasswordHash string
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// UserInput is the create/update request body. ModifiedBy is never read from
// the request; handlers stamp it from the authenticated claims.
type UserInput struct {
	Username   string `json:"username" validate:"required,max=64"`
	Email      string `json:"email" validate:"required,email"`
	ModifiedBy string `json:"-"`
}

// UserFilter narrows list queries. Empty fields are ignored.
type UserFilter struct {
	ID       string
	Username string
	Email    string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*PageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// PageRequest is a 1-indexed page selector.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to 1..MaxPage and the size to 1..MaxPageSize,
// substituting DefaultPageSize when unset.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	switch {
	case p.PageSize == 0:
		p.PageSize = DefaultPageSize
	case p.PageSize < 1:
		p.PageSize = 1
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Limit is the number of rows to return.
func (p PageRequest) Limit() int {
	return p.Normalize().PageSize
}

// Page is one page of a list result.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles page metadata for items out of total rows.
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	n := req.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       n.Page,
		PageSize:   n.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(n.PageSize))),
	}
}
