package model

type UserRole string

const (
	Student  UserRole = "student"
	Teacher  UserRole = "teacher"
	Director UserRole = "director"
	Admin    UserRole = "admin"
)

// User is a minimal mirror of the identity provider's record. Token issuance
// lives in a separate service; this table only backs name lookups on attempt
// listings and owner checks.
// swagger:model User
type User struct {
	BaseModel
	SchoolID uint     `gorm:"index;type:bigint unsigned" json:"schoolId"`
	Name     string   `gorm:"size:100" json:"name"`
	Email    string   `gorm:"size:255;uniqueIndex" json:"email"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
}

func (User) TableName() string {
	return "users"
}
