package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-session-client/roles"
)

// User is a portal account on the development backend.
type User struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email,omitempty"`
	Name         string     `json:"name,omitempty"`
	Role         roles.Role `json:"role,omitempty"`
	PasswordHash string     `json:"-"` // never serialize
	DateJoined   time.Time  `json:"dateJoined,omitempty"`
	LastLogin    time.Time  `json:"lastLogin,omitempty"`

	// Deactivated accounts can neither log in nor use tokens issued before
	// deactivation; the backend answers them with 403.
	Deactivated bool `json:"deactivated,omitempty"`
}

// New builds a user with a hashed password.
func New(email, name, password string, role roles.Role) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return &User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		DateJoined:   time.Now().UTC(),
	}, nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// IsAdmin returns true if the user can manage other accounts
func (u *User) IsAdmin() bool {
	return u.Role == roles.Admin
}
