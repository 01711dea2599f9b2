package query_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/archivist/pkg/query"
)

const selectAll = "SELECT w.id, w.name, w.created_at FROM public.webhooks w"

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "webhooks", "w").
		Project("id", "ID").
		Project("name", "Name").
		Project("created_at", "CreatedAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got := p.Table(); got != "public.webhooks w" {
		t.Errorf("Table() = %q", got)
	}
	if got := p.From(); got != "public.webhooks w" {
		t.Errorf("From() without joins = %q", got)
	}
	if got := p.Alias(); got != "w" {
		t.Errorf("Alias() = %q", got)
	}
	if got := p.Columns(); got != "w.id, w.name, w.created_at" {
		t.Errorf("Columns() = %q", got)
	}
	if want := []string{"w.id", "w.name", "w.created_at"}; !slices.Equal(p.ColumnList(), want) {
		t.Errorf("ColumnList() = %v, want %v", p.ColumnList(), want)
	}

	tests := []struct {
		viewName string
		want     string
	}{
		{"Name", "w.name"},
		{"CreatedAt", "w.created_at"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.viewName, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestProjectionMapJoin(t *testing.T) {
	p := query.NewProjectionMap("public", "webhook_logs", "l").
		Project("id", "ID").
		Project("event", "Event").
		Join("public", "webhooks", "w", "JOIN", "w.id = l.webhook_id").
		Project("name", "WebhookName").
		ProjectExpr("COALESCE(l.response_code, 0)", "ResponseCode")

	wantFrom := "public.webhook_logs l JOIN public.webhooks w ON w.id = l.webhook_id"
	if got := p.From(); got != wantFrom {
		t.Errorf("From() = %q, want %q", got, wantFrom)
	}

	wantCols := "l.id, l.event, w.name, COALESCE(l.response_code, 0)"
	if got := p.Columns(); got != wantCols {
		t.Errorf("Columns() = %q, want %q", got, wantCols)
	}

	sql, _ := query.NewBuilder(p).WhereEquals("WebhookName", "ops").Build()
	wantSQL := "SELECT " + wantCols + " FROM " + wantFrom + " WHERE w.name = $1"
	if sql != wantSQL {
		t.Errorf("Build() = %q, want %q", sql, wantSQL)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "Name", []query.SortField{{Field: "Name"}}},
		{"single descending", "-CreatedAt", []query.SortField{{Field: "CreatedAt", Descending: true}}},
		{
			"mixed with spaces and blanks",
			" Name ,, -CreatedAt ",
			[]query.SortField{{Field: "Name"}, {Field: "CreatedAt", Descending: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	tests := []struct {
		name     string
		sort     []query.SortField
		build    func(*query.Builder) (string, []any)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "plain select",
			build:   func(b *query.Builder) (string, []any) { return b.Build() },
			wantSQL: selectAll,
		},
		{
			name:    "count",
			build:   func(b *query.Builder) (string, []any) { return b.BuildCount() },
			wantSQL: "SELECT COUNT(*) FROM public.webhooks w",
		},
		{
			name: "single by id",
			build: func(b *query.Builder) (string, []any) {
				return b.BuildSingle("ID", "abc")
			},
			wantSQL:  selectAll + " WHERE w.id = $1",
			wantArgs: []any{"abc"},
		},
		{
			name: "nil equals skipped",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Name", nil).Build()
			},
			wantSQL: selectAll,
		},
		{
			name: "nil pointer equals skipped",
			build: func(b *query.Builder) (string, []any) {
				var name *string
				return b.WhereEquals("Name", name).Build()
			},
			wantSQL: selectAll,
		},
		{
			name: "not equals",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereNotEquals("Name", "none").Build()
			},
			wantSQL:  selectAll + " WHERE w.name <> $1",
			wantArgs: []any{"none"},
		},
		{
			name: "contains",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereContains("Name", ptr("ops")).Build()
			},
			wantSQL:  selectAll + " WHERE w.name ILIKE $1",
			wantArgs: []any{"%ops%"},
		},
		{
			name: "empty contains skipped",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereContains("Name", ptr("")).Build()
			},
			wantSQL: selectAll,
		},
		{
			name: "in",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereIn("ID", []any{"a", "b"}).Build()
			},
			wantSQL:  selectAll + " WHERE w.id IN ($1, $2)",
			wantArgs: []any{"a", "b"},
		},
		{
			name: "search across fields",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereSearch(ptr("ops"), "Name", "ID").Build()
			},
			wantSQL:  selectAll + " WHERE (w.name ILIKE $1 OR w.id ILIKE $2)",
			wantArgs: []any{"%ops%", "%ops%"},
		},
		{
			name: "raw clause numbered after earlier conditions",
			build: func(b *query.Builder) (string, []any) {
				return b.
					WhereEquals("Name", "ops").
					WhereClause("w.events @> jsonb_build_array($%d::text)", "document.added").
					Build()
			},
			wantSQL:  selectAll + " WHERE w.name = $1 AND w.events @> jsonb_build_array($2::text)",
			wantArgs: []any{"ops", "document.added"},
		},
		{
			name: "page with condition",
			sort: []query.SortField{{Field: "CreatedAt", Descending: true}},
			build: func(b *query.Builder) (string, []any) {
				return b.WhereContains("Name", ptr("ops")).BuildPage(3, 25)
			},
			wantSQL:  selectAll + " WHERE w.name ILIKE $1 ORDER BY w.created_at DESC LIMIT 25 OFFSET 50",
			wantArgs: []any{"%ops%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build(query.NewBuilder(testProjection(), tt.sort...))
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !slices.Equal(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuilderOrdering(t *testing.T) {
	t.Run("default sort", func(t *testing.T) {
		sql, _ := query.NewBuilder(testProjection(), query.SortField{Field: "Name"}).Build()
		if want := selectAll + " ORDER BY w.name ASC"; sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
	})

	t.Run("explicit sort overrides default", func(t *testing.T) {
		sql, _ := query.NewBuilder(testProjection(), query.SortField{Field: "Name"}).
			OrderByFields([]query.SortField{{Field: "CreatedAt", Descending: true}, {Field: "ID"}}).
			Build()
		if want := selectAll + " ORDER BY w.created_at DESC, w.id ASC"; sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
	})

	t.Run("unprojected sort fields are dropped", func(t *testing.T) {
		sql, _ := query.NewBuilder(testProjection()).
			OrderByFields([]query.SortField{{Field: "name; DROP TABLE webhooks"}, {Field: "Name", Descending: true}}).
			Build()
		if want := selectAll + " ORDER BY w.name DESC"; sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
	})

	t.Run("no projected sort fields omits order by", func(t *testing.T) {
		sql, _ := query.NewBuilder(testProjection(), query.SortField{Field: "missing"}).Build()
		if sql != selectAll {
			t.Errorf("sql = %q, want %q", sql, selectAll)
		}
	})
}
