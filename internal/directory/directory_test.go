package directory

import (
	"context"
	"testing"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

func TestValidTokenFormat(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"123456789:AAexampleSecretValueLongEnough", true},
		{"123456:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw", true},
		{"", false},
		{"no-colon-at-all", false},
		{"12345:AAexampleSecretValueLongEnough", false},  // id too short
		{"1234567890123:AAexampleSecretValueLongEnough", false}, // id too long
		{"123456789:short", false},
		{"123456789:contains spaces here which are bad", false},
		{"abc456789:AAexampleSecretValueLongEnough", false},
	}
	for _, tc := range cases {
		if got := ValidTokenFormat(tc.token); got != tc.want {
			t.Errorf("ValidTokenFormat(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestMemoryDirectoryListsOnlyActive(t *testing.T) {
	dir := NewMemoryDirectory(
		domain.TenantConfig{ID: "t1", Active: true},
		domain.TenantConfig{ID: "t2", Active: false},
	)

	active, err := dir.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "t1" {
		t.Fatalf("expected only the active tenant, got %+v", active)
	}

	dir.Upsert(domain.TenantConfig{ID: "t2", Active: true})
	active, _ = dir.ListActive(context.Background())
	if len(active) != 2 {
		t.Fatalf("expected two active tenants after upsert, got %d", len(active))
	}

	dir.Remove("t1")
	active, _ = dir.ListActive(context.Background())
	if len(active) != 1 || active[0].ID != "t2" {
		t.Fatalf("expected removal to take effect, got %+v", active)
	}
}
