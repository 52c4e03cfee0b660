package devapi

import (
	"fmt"

	"github.com/jrsteele09/go-session-client/roles"
	"github.com/jrsteele09/go-session-client/users"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "Telehealth1"

// SeedEmail is the seeded account address for role.
func SeedEmail(role roles.Role) string {
	return role.String() + "@telehealth.local"
}

// Seed creates one account per role unless it already exists.
func Seed(repo users.UserRepo) ([]*users.User, error) {
	seeded := make([]*users.User, 0, len(roles.All()))
	for _, role := range roles.All() {
		if existing, err := repo.GetByEmail(SeedEmail(role)); err == nil {
			seeded = append(seeded, existing)
			continue
		}
		u, err := users.New(SeedEmail(role), "Dev "+role.String(), SeedPassword, role)
		if err != nil {
			return nil, fmt.Errorf("seeding %s: %w", role, err)
		}
		if err := repo.Upsert(u); err != nil {
			return nil, fmt.Errorf("seeding %s: %w", role, err)
		}
		seeded = append(seeded, u)
	}
	return seeded, nil
}
