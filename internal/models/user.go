package models

type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleAdmin   UserRole = "ADMIN"
)

// Valid reports whether the role is one of the closed set of roles.
func (r UserRole) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// User is the identity record. It is owned by the users collection and
// referenced, never owned, by Student documents.
type User struct {
	ID        string   `json:"id" bson:"_id,omitempty"`
	Username  string   `json:"username" bson:"username" validate:"required"`
	Email     string   `json:"email" bson:"email" validate:"required,email"`
	FirstName string   `json:"first_name" bson:"first_name"`
	LastName  string   `json:"last_name" bson:"last_name"`
	Token     string   `json:"token,omitempty" bson:"token"`
	Role      UserRole `json:"role" bson:"role" validate:"required,user_role"`
}

func (u *User) GetID() string   { return u.ID }
func (u *User) SetID(id string) { u.ID = id }
