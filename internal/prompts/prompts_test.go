package prompts

import (
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "page {{.Page}}", []string{"Page"}},
		{"sorted dedup", "{{.PageW}} {{.Page}} {{.Page}}", []string{"Page", "PageW"}},
		{"nested", "{{ .Snapshot.PageW }}", []string{"Snapshot.PageW"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariables(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResolverDefaults(t *testing.T) {
	r := NewResolver(nil)

	for _, key := range []string{KeyAnalyzeLayout, KeyGenerateTypst, KeyOptimizeTypst} {
		p, err := r.Resolve(key, "")
		if err != nil {
			t.Fatalf("Resolve(%s): %v", key, err)
		}
		if p.Text == "" || p.IsOverride {
			t.Errorf("Resolve(%s) = %+v", key, p)
		}
	}

	if _, err := r.Resolve("no.such.prompt", ""); err == nil {
		t.Error("unknown key should error")
	}
	if got := len(r.List()); got != 3 {
		t.Errorf("List len = %d, want 3", got)
	}
}

func TestResolverOverride(t *testing.T) {
	r := NewResolver(nil)

	if err := r.SetOverride("sess-1", KeyGenerateTypst, "custom prompt for {{.Page}}"); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}

	p, err := r.Resolve(KeyGenerateTypst, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOverride || p.Text != "custom prompt for {{.Page}}" {
		t.Errorf("override not applied: %+v", p)
	}
	if len(p.Variables) != 1 || p.Variables[0] != "Page" {
		t.Errorf("variables = %v", p.Variables)
	}

	// Other sessions still get the default.
	other, _ := r.Resolve(KeyGenerateTypst, "sess-2")
	if other.IsOverride {
		t.Error("override leaked to another session")
	}

	// Clearing restores the default.
	if err := r.SetOverride("sess-1", KeyGenerateTypst, ""); err != nil {
		t.Fatal(err)
	}
	cleared, _ := r.Resolve(KeyGenerateTypst, "sess-1")
	if cleared.IsOverride {
		t.Error("override not cleared")
	}

	if err := r.SetOverride("sess-1", "no.such.prompt", "x"); err == nil {
		t.Error("override on unknown key should error")
	}
}

func TestDropSession(t *testing.T) {
	r := NewResolver(nil)
	if err := r.SetOverride("sess-1", KeyOptimizeTypst, "override"); err != nil {
		t.Fatal(err)
	}
	r.DropSession("sess-1")

	p, _ := r.Resolve(KeyOptimizeTypst, "sess-1")
	if p.IsOverride {
		t.Error("override survived DropSession")
	}
}
