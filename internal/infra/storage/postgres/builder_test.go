package postgres

import (
	"strings"
	"testing"

	"github.com/h1labs/labs/internal/infra/storage"
)

func TestBuilder_Build(t *testing.T) {
	query, args := Select("SELECT id FROM labs").
		Where("owner = ?", "0xabc").
		WhereIf(false, "domain = ?", "bio").
		WhereIf(true, "name ILIKE ? OR symbol ILIKE ?", "%a%", "%a%").
		OrderBy("id ASC").
		Page(storage.Page{Number: 3, Size: 10}).
		Build()

	want := "SELECT id FROM labs WHERE (owner = $1) AND (name ILIKE $2 OR symbol ILIKE $3) ORDER BY id ASC LIMIT $4 OFFSET $5"
	if query != want {
		t.Errorf("query = %q\nwant    %q", query, want)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	if args[3] != 10 || args[4] != 20 {
		t.Errorf("unexpected paging args %v %v", args[3], args[4])
	}
	if placeholderCount(query) != len(args) {
		t.Errorf("placeholders %d != args %d", placeholderCount(query), len(args))
	}
}

func TestBuilder_FirstPageOmitsOffset(t *testing.T) {
	query, args := Select("SELECT id FROM labs").Page(storage.Page{}).Build()
	if strings.Contains(query, "OFFSET") {
		t.Errorf("first page should not have OFFSET: %s", query)
	}
	if len(args) != 1 || args[0] != storage.DefaultPageSize {
		t.Errorf("expected default page size arg, got %v", args)
	}
}

func TestBuilder_Count(t *testing.T) {
	b := Select("SELECT id FROM labs").
		Where("owner = ?", "0xabc").
		OrderBy("id ASC").
		Page(storage.Page{Number: 2, Size: 5})

	query, args := b.Count("labs")
	if query != "SELECT COUNT(*) FROM labs WHERE (owner = $1)" {
		t.Errorf("unexpected count query %q", query)
	}
	if len(args) != 1 {
		t.Errorf("count should only bind filter args, got %v", args)
	}

	// Count must not disturb the main statement
	query, args = b.Build()
	if placeholderCount(query) != len(args) || len(args) != 3 {
		t.Errorf("build after count: %q %v", query, args)
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"lab", "%lab%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPageNormalize(t *testing.T) {
	p := storage.Page{Number: -1, Size: 1000}.Normalize()
	if p.Number != 1 || p.Size != storage.MaxPageSize {
		t.Errorf("unexpected normalized page %+v", p)
	}
	if off := (storage.Page{Number: 4, Size: 25}).Offset(); off != 75 {
		t.Errorf("expected offset 75, got %d", off)
	}
}
