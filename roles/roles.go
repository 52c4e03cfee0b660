package roles

import (
	"context"
	"strings"
)

// Role is the portal a session belongs to
type Role string

const (
	Unknown  Role = ""
	Admin    Role = "admin"    // Clinic staff, account management
	Provider Role = "provider" // Clinicians approving prescriptions and running appointments
	Patient  Role = "patient"  // Intake, orders, subscriptions
)

var loginRoutes = map[Role]string{
	Admin:    "/admin/login",
	Provider: "/provider/login",
	Patient:  "/patient/login",
}

// All returns every known role in a stable order
func All() []Role {
	return []Role{Admin, Provider, Patient}
}

// Parse maps a claim or path segment to a Role, returning Unknown for anything else
func Parse(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case Admin:
		return Admin
	case Provider:
		return Provider
	case Patient:
		return Patient
	default:
		return Unknown
	}
}

func (r Role) Valid() bool {
	_, ok := loginRoutes[r]
	return ok
}

func (r Role) String() string {
	if r == Unknown {
		return "unknown"
	}
	return string(r)
}

// LoginRoute returns the login page for the role. Unknown roles land on the patient login.
func (r Role) LoginRoute() string {
	if route, ok := loginRoutes[r]; ok {
		return route
	}
	return loginRoutes[Patient]
}

// FromPath derives a role from a page path prefix (/admin, /provider, /patient).
func FromPath(path string) Role {
	for _, r := range All() {
		prefix := "/" + string(r)
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return r
		}
	}
	return Unknown
}

type contextKey struct{}

// NewContext returns a context carrying the role hint resolved at the boundary
func NewContext(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the role hint, or Unknown
func FromContext(ctx context.Context) Role {
	r, _ := ctx.Value(contextKey{}).(Role)
	return r
}
