package patterns

import (
	"context"
	"errors"
	"testing"

	"github.com/bastionsec/sharescan/pkg/models"
)

func categories(matches []Match) map[string]bool {
	out := make(map[string]bool, len(matches))
	for _, m := range matches {
		out[m.Category] = true
	}
	return out
}

func TestClassify_Defaults(t *testing.T) {
	r := New(Defaults())

	tests := []struct {
		name     string
		filename string
		want     []string
		wantNone bool
	}{
		{"password file", "passwords.txt", []string{CategoryCredential}, false},
		{"uppercase", "PASSWORD.TXT", []string{CategoryCredential}, false},
		{"pem key", "key.pem", []string{CategorySecurity}, false},
		{"keepass", "vault.kdbx", []string{CategorySecurity}, false},
		{"payroll spreadsheet", "payroll_2024.xlsx", []string{CategoryHR}, false},
		{"ssn list", "employee_ssn_backup.xlsx", []string{CategoryHR, CategoryPII, CategoryBackup}, false},
		{"config", "app.settings.json", []string{CategoryConfiguration}, false},
		{"classified", "CONFIDENTIAL-plan.docx", []string{CategoryClassification}, false},
		{"no match", "holiday-photos.jpg", nil, true},
		{"empty name", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Classify(tt.filename)
			if tt.wantNone {
				if got != nil {
					t.Fatalf("Classify(%q) = %v, want no matches", tt.filename, got)
				}
				return
			}
			cats := categories(got)
			for _, want := range tt.want {
				if !cats[want] {
					t.Errorf("Classify(%q) missing category %q, got %v", tt.filename, want, got)
				}
			}
		})
	}
}

func TestClassify_DistinctCategories(t *testing.T) {
	rows := []models.Pattern{
		{Pattern: `backup`, Category: "backup", Description: "first"},
		{Pattern: `dump`, Category: "backup", Description: "second"},
	}
	r := New(rows)

	got := r.Classify("backup_dump.sql")
	if len(got) != 1 {
		t.Fatalf("expected one match for duplicate category, got %v", got)
	}
	if got[0].Description != "first" {
		t.Errorf("expected first pattern's description to win, got %q", got[0].Description)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	r := New(Defaults())

	first := r.Classify("employee_ssn_backup.xlsx")
	second := r.Classify("employee_ssn_backup.xlsx")

	if len(first) != len(second) {
		t.Fatalf("classification not stable: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("match %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestNew_SkipsInvalidRegex(t *testing.T) {
	rows := []models.Pattern{
		{Pattern: `([`, Category: "broken", Description: "invalid"},
		{Pattern: `secret`, Category: "credential", Description: "ok"},
	}
	r := New(rows)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (invalid pattern skipped)", r.Len())
	}
	if got := r.Classify("secret.txt"); len(got) != 1 {
		t.Errorf("surviving pattern should still match, got %v", got)
	}
}

func TestRegistry_Categories(t *testing.T) {
	r := New(Defaults())

	cats := r.Categories()
	seen := make(map[string]bool)
	for _, c := range cats {
		if seen[c] {
			t.Errorf("duplicate category %q", c)
		}
		seen[c] = true
	}
	for _, want := range []string{CategoryCredential, CategoryPII, CategorySecurity} {
		if !seen[want] {
			t.Errorf("missing category %q", want)
		}
	}
}

func TestClassify_EmptyRegistry(t *testing.T) {
	r := New(nil)
	if got := r.Classify("passwords.txt"); got != nil {
		t.Errorf("empty registry Classify() = %v, want nil", got)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

type fakeSource struct {
	rows []models.Pattern
	err  error
}

func (f *fakeSource) ListPatterns(ctx context.Context, enabledOnly bool) ([]models.Pattern, error) {
	return f.rows, f.err
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("uses store patterns", func(t *testing.T) {
		src := &fakeSource{rows: []models.Pattern{
			{Pattern: `invoice`, Category: "financial", Description: "custom"},
		}}
		r := Load(ctx, src)
		if r.Len() != 1 {
			t.Fatalf("Len() = %d, want 1", r.Len())
		}
		if got := r.Classify("invoice.pdf"); len(got) != 1 || got[0].Category != "financial" {
			t.Errorf("Classify(invoice.pdf) = %v", got)
		}
	})

	t.Run("falls back on store error", func(t *testing.T) {
		src := &fakeSource{err: errors.New("connection refused")}
		r := Load(ctx, src)
		if r.Len() != len(Defaults()) {
			t.Errorf("Len() = %d, want %d defaults", r.Len(), len(Defaults()))
		}
	})

	t.Run("falls back on empty table", func(t *testing.T) {
		src := &fakeSource{}
		r := Load(ctx, src)
		if r.Len() != len(Defaults()) {
			t.Errorf("Len() = %d, want %d defaults", r.Len(), len(Defaults()))
		}
	})
}

func BenchmarkClassify(b *testing.B) {
	r := New(Defaults())

	b.Run("no match", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			r.Classify("quarterly-report-final-v2.pptx")
		}
	})

	b.Run("match", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			r.Classify("passwords.txt")
		}
	})
}
