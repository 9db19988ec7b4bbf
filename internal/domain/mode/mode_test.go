package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []BackendMode{Embedded, Server, MultiTenant}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []BackendMode{"", "cluster", "EMBEDDED"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestNewConnectionContext_MultiTenantRequiresTenant(t *testing.T) {
	if _, err := NewConnectionContext(MultiTenant, "", "db"); err == nil {
		t.Fatal("expected error for missing tenant")
	}

	c, err := NewConnectionContext(MultiTenant, "acme", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Tenant() != "acme" {
		t.Errorf("Tenant() = %q", c.Tenant())
	}
	if c.Database() != DefaultDatabase {
		t.Errorf("Database() = %q", c.Database())
	}
}

func TestNewConnectionContext_SingleTenantIgnoresTenant(t *testing.T) {
	c, err := NewConnectionContext(Embedded, "ignored", "docs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Tenant() != DefaultTenant {
		t.Errorf("Tenant() = %q, want %q", c.Tenant(), DefaultTenant)
	}
	if c.Mode() != Embedded {
		t.Errorf("Mode() = %q", c.Mode())
	}
}

func TestNewConnectionContext_Invalid(t *testing.T) {
	if _, err := NewConnectionContext("bogus", "", ""); err == nil {
		t.Error("expected error for invalid mode")
	}
	if _, err := NewConnectionContext(Server, "", "bad name"); err == nil {
		t.Error("expected error for invalid database name")
	}
}

func TestWithDatabase(t *testing.T) {
	c, _ := NewConnectionContext(MultiTenant, "acme", "a")
	d, err := c.WithDatabase("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Database() != "b" || d.Tenant() != "acme" {
		t.Errorf("got %q/%q", d.Tenant(), d.Database())
	}
	if c.Database() != "a" {
		t.Error("original context mutated")
	}
}
