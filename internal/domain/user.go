package domain

import (
	"time"
)

type Role string

const (
	RoleProfessional Role = "profesional"
	RoleCoordinator  Role = "coordinador"
	RoleAdmin        Role = "administrador"
)

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	ProfessionalID *int64    `json:"professionalID"` // 只有医务人员账号才关联人员档案
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	Version        int32     `json:"-"`
}

func (u *User) IsCoordinator() bool {
	return u.Role == RoleCoordinator || u.Role == RoleAdmin
}

// Owns 判断该账号是否为申报所属的医务人员
func (u *User) Owns(d *AvailabilityDeclaration) bool {
	return u.ProfessionalID != nil && *u.ProfessionalID == d.ProfessionalID
}
