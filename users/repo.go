package users

type UserRepo interface {
	Upsert(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	List(offset, limit int) ([]*User, error)
	SetDeactivated(ID string, deactivated bool) error
	SetLastLogin(ID string) error
}
