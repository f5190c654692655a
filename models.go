package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account record. The password hash stays server-side; the
// json tag keeps it out of every response body.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name         string     `bun:"name,notnull" json:"name,omitempty"`
	Age          int        `bun:"age,notnull" json:"age,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserRecord is the outward identity projection: the same four fields the
// tokens carry.
type UserRecord struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Age   int       `json:"age"`
}

func NewUserRecord(user *User) UserRecord {
	if user == nil {
		return UserRecord{}
	}
	return UserRecord{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Age:   user.Age,
	}
}

// RefreshToken is a user's single live refresh credential. The unique
// constraint on user_id is what makes the slot single occupancy.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rtk"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Token     string     `bun:"token,notnull,unique" json:"token,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}
