// Package pipeline runs the shared create/update/delete/read flow for every resource:
// validate, check references, check singletons, write, reclassify, reload.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/storage"
	"clinicnotes/internal/validation"
)

// Recorder receives one observation per pipeline run. Outcome is "success" or an error kind.
type Recorder interface {
	ObservePipeline(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObservePipeline(string, string, time.Duration) {}

// Runner carries the id and clock sources shared by all pipelines.
type Runner struct {
	NewID    func() string
	Now      func() time.Time
	Recorder Recorder
}

func NewRunner(rec Recorder) *Runner {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Runner{
		NewID:    uuid.NewString,
		Now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		Recorder: rec,
	}
}

// Reference is an entity the new record points at. Missing references fail the run
// with "<Entity> not found".
type Reference struct {
	Entity string
	ID     string
	Exists func(ctx context.Context, id string) (bool, error)
}

type CreateSteps[In, Out any] struct {
	Operation  string
	Validate   func(validation.Record) (In, error)
	References func(In) []Reference
	// Singleton reports whether a record that may exist only once is already present.
	Singleton        func(ctx context.Context, in In) (bool, error)
	SingletonMessage string
	Insert           func(ctx context.Context, id string, now time.Time, in In) error
	Reload           func(ctx context.Context, id string) (Out, error)
	ConflictMessage  string
}

type UpdateSteps[In, Out any] struct {
	Operation       string
	NotFoundMessage string
	Validate        func(validation.Record) (In, error)
	Empty           func(In) bool
	Update          func(ctx context.Context, id string, now time.Time, in In) error
	Reload          func(ctx context.Context, id string) (Out, error)
	ConflictMessage string
}

func Create[In, Out any](ctx context.Context, r *Runner, s CreateSteps[In, Out], raw validation.Record) (out Out, err error) {
	defer r.observe(s.Operation, time.Now(), &err)

	in, err := s.Validate(raw)
	if err != nil {
		return out, validationFailure(err)
	}

	var refs []Reference
	if s.References != nil {
		refs = s.References(in)
	}
	for _, ref := range refs {
		ok, err := ref.Exists(ctx, ref.ID)
		if err != nil {
			return out, domain.Internal(err)
		}
		if !ok {
			return out, referenceNotFound(ref.Entity, nil)
		}
	}

	if s.Singleton != nil {
		taken, err := s.Singleton(ctx, in)
		if err != nil {
			return out, domain.Internal(err)
		}
		if taken {
			return out, domain.NewError(domain.KindAlreadyExists, s.SingletonMessage)
		}
	}

	id := r.NewID()
	if err := s.Insert(ctx, id, r.Now(), in); err != nil {
		entity := ""
		if len(refs) > 0 {
			entity = refs[0].Entity
		}
		return out, reclassify(err, s.ConflictMessage, "", entity)
	}

	out, err = s.Reload(ctx, id)
	if err != nil {
		return out, domain.Internal(err)
	}
	return out, nil
}

func Update[In, Out any](ctx context.Context, r *Runner, s UpdateSteps[In, Out], id string, raw validation.Record) (out Out, err error) {
	defer r.observe(s.Operation, time.Now(), &err)

	in, err := s.Validate(raw)
	if err != nil {
		return out, validationFailure(err)
	}
	if s.Empty != nil && s.Empty(in) {
		return out, domain.NewError(domain.KindValidation, "No fields to update")
	}

	if err := s.Update(ctx, id, r.Now(), in); err != nil {
		return out, reclassify(err, s.ConflictMessage, s.NotFoundMessage, "")
	}

	out, err = s.Reload(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// removed between the write and the read
		return out, notFound(s.NotFoundMessage, err)
	}
	if err != nil {
		return out, domain.Internal(err)
	}
	return out, nil
}

// Delete removes one record; zero affected rows means it never existed.
func Delete(ctx context.Context, r *Runner, operation, notFoundMessage, id string, del func(context.Context, string) (int64, error)) (err error) {
	defer r.observe(operation, time.Now(), &err)

	removed, err := del(ctx, id)
	if err != nil {
		return domain.Internal(err)
	}
	if removed == 0 {
		return notFound(notFoundMessage, nil)
	}
	return nil
}

func Get[Out any](ctx context.Context, r *Runner, operation, notFoundMessage, id string, get func(context.Context, string) (Out, error)) (out Out, err error) {
	defer r.observe(operation, time.Now(), &err)

	out, err = get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return out, notFound(notFoundMessage, err)
	}
	if err != nil {
		return out, domain.Internal(err)
	}
	return out, nil
}

func List[Out any](ctx context.Context, r *Runner, operation string, list func(context.Context) ([]Out, error)) (out []Out, err error) {
	defer r.observe(operation, time.Now(), &err)

	out, err = list(ctx)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return out, nil
}

func (r *Runner) observe(operation string, start time.Time, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = domain.KindOf(*errp).String()
	}
	r.Recorder.ObservePipeline(operation, outcome, time.Since(start))
}

// reclassify turns storage failures into domain errors. A foreign key violation means a
// reference vanished after the existence check.
func reclassify(err error, conflictMessage, notFoundMessage, entity string) error {
	switch {
	case storage.IsUniqueViolation(err):
		return &domain.Error{Kind: domain.KindConflict, Message: conflictMessage, Err: err}
	case storage.IsForeignKeyViolation(err):
		if entity == "" {
			return domain.Internal(err)
		}
		return referenceNotFound(entity, err)
	case errors.Is(err, storage.ErrNotFound):
		return notFound(notFoundMessage, err)
	default:
		return domain.Internal(err)
	}
}

func validationFailure(err error) error {
	verr, ok := validation.AsError(err)
	if !ok {
		return domain.Internal(err)
	}
	return &domain.Error{Kind: domain.KindValidation, Message: "Validation failed", Fields: verr.Fields, Err: err}
}

func referenceNotFound(entity string, cause error) error {
	return &domain.Error{Kind: domain.KindReferenceNotFound, Message: entity + " not found", Entity: entity, Err: cause}
}

func notFound(message string, cause error) error {
	return &domain.Error{Kind: domain.KindNotFound, Message: message, Err: cause}
}
