package mode

import (
	"fmt"
	"regexp"
)

// BackendMode is the kind of backend a connection talks to.
type BackendMode string

// Backend mode constants.
const (
	// Embedded is a single-process store opened from a local path.
	Embedded BackendMode = "embedded"
	// Server is a networked server reached by address.
	Server BackendMode = "server"
	// MultiTenant is a shared engine where every call is scoped to a tenant.
	MultiTenant BackendMode = "multi_tenant"
)

// IsValid checks if the mode is one of the supported values.
func (m BackendMode) IsValid() bool {
	return m == Embedded || m == Server || m == MultiTenant
}

// RequiresTenant reports whether calls in this mode must carry a tenant.
func (m BackendMode) RequiresTenant() bool { return m == MultiTenant }

const (
	// DefaultTenant scopes databases in modes without tenants.
	DefaultTenant = "default_tenant"
	// DefaultDatabase is the database a connection uses when none is given.
	DefaultDatabase = "default_database"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateName checks a tenant or database name.
func ValidateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name is required", kind)
	}
	if len(name) > 64 {
		return fmt.Errorf("%s name too long (max 64)", kind)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%s name must be alphanumeric with underscores and hyphens", kind)
	}
	return nil
}

// ConnectionContext is the immutable scope shared by the collection and admin facades.
type ConnectionContext struct {
	mode     BackendMode
	tenant   string
	database string
}

// NewConnectionContext validates and creates a ConnectionContext.
// MultiTenant requires an explicit tenant; other modes always use DefaultTenant.
func NewConnectionContext(m BackendMode, tenant, database string) (ConnectionContext, error) {
	if !m.IsValid() {
		return ConnectionContext{}, fmt.Errorf("invalid backend mode %q", m)
	}
	if m.RequiresTenant() {
		if err := ValidateName("tenant", tenant); err != nil {
			return ConnectionContext{}, err
		}
	} else {
		tenant = DefaultTenant
	}
	if database == "" {
		database = DefaultDatabase
	}
	if err := ValidateName("database", database); err != nil {
		return ConnectionContext{}, err
	}
	return ConnectionContext{mode: m, tenant: tenant, database: database}, nil
}

// Mode returns the backend mode.
func (c ConnectionContext) Mode() BackendMode { return c.mode }

// Tenant returns the tenant every call is scoped to.
func (c ConnectionContext) Tenant() string { return c.tenant }

// Database returns the current database.
func (c ConnectionContext) Database() string { return c.database }

// WithDatabase returns a copy scoped to another database of the same tenant.
func (c ConnectionContext) WithDatabase(database string) (ConnectionContext, error) {
	if err := ValidateName("database", database); err != nil {
		return ConnectionContext{}, err
	}
	c.database = database
	return c, nil
}
