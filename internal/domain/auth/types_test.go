package auth

import "testing"

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, ok := ParseRole(string(r))
		if !ok || got != r {
			t.Fatalf("ParseRole(%q) = %q, %v", r, got, ok)
		}
	}

	for _, raw := range []string{"", "admin", "ROOT", " ADMIN", "GUEST"} {
		if _, ok := ParseRole(raw); ok {
			t.Fatalf("ParseRole(%q) should be rejected", raw)
		}
	}
}

func TestParseRoleFold(t *testing.T) {
	got, ok := ParseRoleFold("  tester ")
	if !ok || got != RoleTester {
		t.Fatalf("unexpected result: %q %v", got, ok)
	}
	if _, ok := ParseRoleFold("superuser"); ok {
		t.Fatal("unknown role should be rejected")
	}
}

func TestIdentity_IsAdmin(t *testing.T) {
	if !(Identity{ID: "u1", Role: RoleAdmin}).IsAdmin() {
		t.Fatal("expected admin")
	}
	for _, r := range []Role{RoleManager, RoleTester, RoleViewer} {
		if (Identity{ID: "u1", Role: r}).IsAdmin() {
			t.Fatalf("%s must not be admin", r)
		}
	}
}

func TestIdentity_Valid(t *testing.T) {
	if !(Identity{ID: "u1", Role: RoleViewer}).Valid() {
		t.Fatal("expected valid identity")
	}
	if (Identity{ID: "", Role: RoleViewer}).Valid() {
		t.Fatal("empty id must be invalid")
	}
	if (Identity{ID: "u1", Role: "OWNER"}).Valid() {
		t.Fatal("unknown role must be invalid")
	}
}
