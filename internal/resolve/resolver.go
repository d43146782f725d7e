package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/repository"
)

// fieldSpec binds one raw parameter to the entity kind it resolves against
// and the canonical parameter the resolved ID is stored under.
type fieldSpec struct {
	field   string
	kind    repository.Kind
	idField string
}

// intentFields lists, per intent, the ambiguous fields the resolver handles.
// Fields absent from the parameter map are skipped; required-field checks
// belong to the validator, not the resolver.
var intentFields = map[string][]fieldSpec{
	"create_fee":        {{"school", repository.KindSchool, "school_id"}},
	"update_fee_status": {{"student", repository.KindStudent, "student_id"}},
	"show_fees":         {{"school", repository.KindSchool, "school_id"}, {"student", repository.KindStudent, "student_id"}},
	"delete_fee":        {{"student", repository.KindStudent, "student_id"}, {"school", repository.KindSchool, "school_id"}},
	"add_item":          {{"category", repository.KindCategory, "category_id"}},
	"remove_item":       {{"item", repository.KindItem, "item_id"}},
	"update_item":       {{"item", repository.KindItem, "item_id"}},
	"show_items":        {{"category", repository.KindCategory, "category_id"}},
	"mark_attendance":   {{"student", repository.KindStudent, "student_id"}},
	"show_attendance":   {{"student", repository.KindStudent, "student_id"}},
	"add_employee":      {{"school", repository.KindSchool, "school_id"}},
	"remove_employee":   {{"employee", repository.KindEmployee, "employee_id"}},
	"show_employees":    {{"school", repository.KindSchool, "school_id"}},
	"send_notice":       {{"school", repository.KindSchool, "school_id"}},
}

// Result is the transient outcome of one Resolve call. On success Params
// holds the caller's parameters plus resolved canonical IDs; on failure or
// clarification the caller's original map is untouched.
type Result struct {
	Success bool

	// Params is the resolved parameter map. Only meaningful when Success.
	Params command.Params

	// Clarify is set when the user must pick among candidates (ambiguity)
	// or be shown the nearest alternatives (no match). Options order is
	// deterministic so a later bare-number reply can index into it.
	Clarify *command.Clarification

	// Info maps resolved field names to human-readable display names, for
	// confirmation summaries ("Main School", not "sch-1").
	Info map[string]string

	// Message describes the failure when Success is false.
	Message string
}

// Resolver applies the similarity decision policy against a domain
// repository. It is stateless apart from the repository handle and safe for
// concurrent use.
type Resolver struct {
	repo repository.Repository
}

// New returns a [Resolver] querying repo.
func New(repo repository.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// scored pairs a candidate with its similarity score.
type scored struct {
	ref   repository.Ref
	score float64
}

// Resolve disambiguates every entity field the intent declares. The caller's
// params map is never mutated: resolution happens on a clone that is only
// returned on full success.
func (r *Resolver) Resolve(ctx context.Context, intent string, params command.Params, scope repository.Scope) (Result, error) {
	specs, ok := intentFields[intent]
	if !ok {
		// Intent has no ambiguous fields; pass parameters through untouched.
		return Result{Success: true, Params: params.Clone(), Info: map[string]string{}}, nil
	}

	resolved := params.Clone()
	info := map[string]string{}

	for _, spec := range specs {
		// An explicit canonical ID wins; it only needs an existence check.
		if idVal, ok := params[spec.idField]; ok {
			ref, err := r.repo.GetByID(ctx, spec.kind, idVal.Text(), scope)
			if errors.Is(err, repository.ErrNotFound) {
				return Result{
					Success: false,
					Message: fmt.Sprintf("%s with id %q not found", spec.kind, idVal.Text()),
				}, nil
			}
			if err != nil {
				return Result{}, fmt.Errorf("resolve: get %s by id: %w", spec.kind, err)
			}
			info[spec.field] = ref.DisplayName
			continue
		}

		raw, ok := params[spec.field]
		if !ok || strings.TrimSpace(raw.Text()) == "" {
			continue
		}

		outcome, err := r.resolveField(ctx, spec, raw.Text(), scope)
		if err != nil {
			return Result{}, err
		}
		if !outcome.Success {
			return outcome.Result, nil
		}

		resolved[spec.idField] = command.String(outcome.acceptedID)
		info[spec.field] = outcome.acceptedName
	}

	return Result{Success: true, Params: resolved, Info: info}, nil
}

// fieldOutcome extends Result with the accepted candidate for internal use.
type fieldOutcome struct {
	Result
	acceptedID   string
	acceptedName string
}

// resolveField runs the uniform decision policy for one field:
// score every in-scope candidate, drop those below [MatchThreshold], sort
// descending, then triage into auto-accept, clarification, or not-found.
func (r *Resolver) resolveField(ctx context.Context, spec fieldSpec, raw string, scope repository.Scope) (fieldOutcome, error) {
	candidates, err := r.repo.FindSimilar(ctx, spec.kind, raw, scope)
	if err != nil {
		return fieldOutcome{}, fmt.Errorf("resolve: find %s candidates: %w", spec.kind, err)
	}

	var matches []scored
	for _, c := range candidates {
		if s := Score(raw, c.DisplayName); s >= MatchThreshold {
			matches = append(matches, scored{ref: c, score: s})
		}
	}

	// Deterministic order: score descending, display name ascending as the
	// tie-breaker. Identical inputs always yield identical option lists.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].ref.DisplayName < matches[j].ref.DisplayName
	})

	switch {
	case len(matches) == 0:
		return fieldOutcome{Result: notFound(spec, raw, candidates)}, nil

	case len(matches) == 1:
		m := matches[0]
		return fieldOutcome{
			Result:       Result{Success: true},
			acceptedID:   m.ref.ID,
			acceptedName: m.ref.DisplayName,
		}, nil

	case matches[0].score > AutoAcceptScore && matches[0].score-matches[1].score > AutoAcceptGap:
		m := matches[0]
		return fieldOutcome{
			Result:       Result{Success: true},
			acceptedID:   m.ref.ID,
			acceptedName: m.ref.DisplayName,
		}, nil
	}

	// Ambiguous: ask the user, listing the top candidates by score.
	n := len(matches)
	if n > maxClarifyOptions {
		n = maxClarifyOptions
	}
	options := make([]command.Option, n)
	for i := 0; i < n; i++ {
		options[i] = command.Option{ID: matches[i].ref.ID, Label: matches[i].ref.DisplayName}
	}
	return fieldOutcome{Result: Result{
		Success: false,
		Clarify: &command.Clarification{
			Field:   spec.field,
			Prompt:  fmt.Sprintf("Multiple %ss match %q. Reply with the number of the one you mean.", spec.kind, raw),
			Options: options,
		},
		Message: fmt.Sprintf("multiple %ss match %q", spec.kind, raw),
	}}, nil
}

// notFound builds the zero-match outcome: a failure carrying the first few
// available candidates in display order, numbered so the user can pick one.
func notFound(spec fieldSpec, raw string, candidates []repository.Ref) Result {
	n := len(candidates)
	if n > maxNotFoundOptions {
		n = maxNotFoundOptions
	}
	options := make([]command.Option, n)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		options[i] = command.Option{ID: candidates[i].ID, Label: candidates[i].DisplayName}
		names[i] = candidates[i].DisplayName
	}

	msg := fmt.Sprintf("%s %q not found", spec.kind, raw)
	if n > 0 {
		msg = fmt.Sprintf("%s. Available: %s. Reply with the number to pick one.", msg, strings.Join(names, ", "))
	}

	var clarify *command.Clarification
	if n > 0 {
		clarify = &command.Clarification{
			Field:   spec.field,
			Prompt:  msg,
			Options: options,
		}
	}
	return Result{Success: false, Clarify: clarify, Message: msg}
}
