package resolve_test

import (
	"context"
	"testing"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/repository"
	"github.com/campushq/steward/internal/resolve"
)

func seedRepo() *repository.MemRepo {
	repo := repository.NewMemRepo()
	repo.Add(repository.KindSchool,
		repository.Entity{ID: "sch-1", DisplayName: "Main School"},
		repository.Entity{ID: "sch-2", DisplayName: "Secondary School"},
	)
	repo.Add(repository.KindStudent,
		repository.Entity{ID: "stu-1", DisplayName: "John Smith", SchoolID: "sch-1"},
		repository.Entity{ID: "stu-2", DisplayName: "Sarah Smithson", SchoolID: "sch-1"},
		repository.Entity{ID: "stu-3", DisplayName: "Ahmed Khan", SchoolID: "sch-2"},
	)
	repo.Add(repository.KindEmployee,
		repository.Entity{ID: "emp-1", DisplayName: "Bilal Hussain", SchoolID: "sch-1"},
	)
	repo.Add(repository.KindItem,
		repository.Entity{ID: "itm-1", DisplayName: "Projector", SchoolID: "sch-1"},
	)
	repo.Add(repository.KindCategory,
		repository.Entity{ID: "cat-1", DisplayName: "Sports", SchoolID: "sch-1"},
	)
	return repo
}

var allAccess = repository.Scope{Unrestricted: true}

func TestResolveTypoAutoAccepts(t *testing.T) {
	t.Parallel()

	r := resolve.New(seedRepo())
	params := command.Params{"school": command.String("Main Schol"), "month": command.String("Jan-2026")}

	res, err := r.Resolve(context.Background(), "create_fee", params, allAccess)
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Resolve: expected auto-accept, got clarify=%v message=%q", res.Clarify, res.Message)
	}
	if got := res.Params["school_id"]; got.Str != "sch-1" {
		t.Fatalf("school_id = %q, want sch-1", got.Str)
	}
	if res.Info["school"] != "Main School" {
		t.Fatalf("Info[school] = %q, want Main School", res.Info["school"])
	}
	// Existing params survive resolution.
	if got := res.Params["month"]; got.Str != "Jan-2026" {
		t.Fatalf("month = %q, want Jan-2026", got.Str)
	}
}

func TestResolveAmbiguityClarifies(t *testing.T) {
	t.Parallel()

	r := resolve.New(seedRepo())
	params := command.Params{"student": command.String("Smith")}

	res, err := r.Resolve(context.Background(), "update_fee_status", params, allAccess)
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("Resolve: expected clarification, got success")
	}
	if res.Clarify == nil || len(res.Clarify.Options) != 2 {
		t.Fatalf("Clarify = %+v, want 2 options", res.Clarify)
	}
	// Both contain "Smith" so both sit at the containment score; the tie
	// breaks alphabetically.
	if res.Clarify.Options[0].Label != "John Smith" || res.Clarify.Options[1].Label != "Sarah Smithson" {
		t.Fatalf("options = %v, want [John Smith, Sarah Smithson]", res.Clarify.Options)
	}
	if res.Clarify.Field != "student" {
		t.Fatalf("Clarify.Field = %q, want student", res.Clarify.Field)
	}
}

func TestResolveNotFoundListsAlternatives(t *testing.T) {
	t.Parallel()

	r := resolve.New(seedRepo())
	params := command.Params{"school": command.String("Zanzibar Academy")}

	res, err := r.Resolve(context.Background(), "create_fee", params, allAccess)
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("Resolve: expected failure, got success")
	}
	if res.Clarify == nil || len(res.Clarify.Options) != 2 {
		t.Fatalf("Clarify = %+v, want 2 alternatives", res.Clarify)
	}
	// Alternatives come in display order, not score order.
	if res.Clarify.Options[0].Label != "Main School" {
		t.Fatalf("first alternative = %q, want Main School", res.Clarify.Options[0].Label)
	}
}

func TestResolveSingleMatchAutoAcceptsEveryKind(t *testing.T) {
	t.Parallel()

	// The decision policy is shared: exactly one candidate above threshold
	// auto-accepts for every entity kind.
	tests := []struct {
		intent string
		field  string
		raw    string
		wantID string
	}{
		{"mark_attendance", "student", "Ahmed Kahn", "stu-3"},
		{"remove_employee", "employee", "Bilal Husain", "emp-1"},
		{"remove_item", "item", "projector", "itm-1"},
		{"show_items", "category", "sports", "cat-1"},
	}
	for _, tt := range tests {
		t.Run(tt.intent+"/"+tt.raw, func(t *testing.T) {
			t.Parallel()
			r := resolve.New(seedRepo())
			params := command.Params{tt.field: command.String(tt.raw)}
			res, err := r.Resolve(context.Background(), tt.intent, params, allAccess)
			if err != nil {
				t.Fatalf("Resolve: unexpected error: %v", err)
			}
			if !res.Success {
				t.Fatalf("Resolve(%s=%q): expected auto-accept, got %q", tt.field, tt.raw, res.Message)
			}
			if got := res.Params[tt.field+"_id"]; got.Str != tt.wantID {
				t.Fatalf("%s_id = %q, want %q", tt.field, got.Str, tt.wantID)
			}
		})
	}
}

func TestResolveIdempotentOptionOrder(t *testing.T) {
	t.Parallel()

	r := resolve.New(seedRepo())
	params := command.Params{"student": command.String("Smith")}

	first, err := r.Resolve(context.Background(), "update_fee_status", params, allAccess)
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := r.Resolve(context.Background(), "update_fee_status", params, allAccess)
		if err != nil {
			t.Fatalf("Resolve run %d: unexpected error: %v", i, err)
		}
		if len(again.Clarify.Options) != len(first.Clarify.Options) {
			t.Fatalf("run %d: option count changed", i)
		}
		for j := range again.Clarify.Options {
			if again.Clarify.Options[j] != first.Clarify.Options[j] {
				t.Fatalf("run %d: option %d = %v, want %v", i, j, again.Clarify.Options[j], first.Clarify.Options[j])
			}
		}
	}
}

func TestResolveExplicitID(t *testing.T) {
	t.Parallel()

	t.Run("known id accepted", func(t *testing.T) {
		t.Parallel()
		r := resolve.New(seedRepo())
		params := command.Params{"school_id": command.String("sch-2")}
		res, err := r.Resolve(context.Background(), "create_fee", params, allAccess)
		if err != nil {
			t.Fatalf("Resolve: unexpected error: %v", err)
		}
		if !res.Success {
			t.Fatalf("Resolve: expected success, got %q", res.Message)
		}
		if res.Info["school"] != "Secondary School" {
			t.Fatalf("Info[school] = %q, want Secondary School", res.Info["school"])
		}
	})

	t.Run("unknown id fails without clarification", func(t *testing.T) {
		t.Parallel()
		r := resolve.New(seedRepo())
		params := command.Params{"school_id": command.String("sch-99")}
		res, err := r.Resolve(context.Background(), "create_fee", params, allAccess)
		if err != nil {
			t.Fatalf("Resolve: unexpected error: %v", err)
		}
		if res.Success {
			t.Fatal("Resolve: expected failure for unknown id")
		}
		if res.Clarify != nil {
			t.Fatalf("Resolve: unknown id must not clarify, got %+v", res.Clarify)
		}
	})
}

func TestResolveScopeRestriction(t *testing.T) {
	t.Parallel()

	// A caller restricted to sch-2 must never see sch-1 students, even in
	// clarification or not-found lists.
	restricted := repository.Scope{Role: "school_admin", SchoolIDs: []string{"sch-2"}}
	r := resolve.New(seedRepo())

	params := command.Params{"student": command.String("Smith")}
	res, err := r.Resolve(context.Background(), "update_fee_status", params, restricted)
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("Resolve: expected not-found for out-of-scope query")
	}
	if res.Clarify != nil {
		for _, opt := range res.Clarify.Options {
			if opt.ID == "stu-1" || opt.ID == "stu-2" {
				t.Fatalf("out-of-scope student leaked into options: %v", opt)
			}
		}
	}
}

func TestResolveNeverMutatesCallerParams(t *testing.T) {
	t.Parallel()

	r := resolve.New(seedRepo())
	params := command.Params{"student": command.String("Smith")}

	if _, err := r.Resolve(context.Background(), "update_fee_status", params, allAccess); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if len(params) != 1 {
		t.Fatalf("caller params mutated: %v", params)
	}
	if _, ok := params["student_id"]; ok {
		t.Fatal("caller params gained student_id on a failed resolution")
	}
}
