package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

// Mutation entry points: write to the backend first, then patch the snapshot
// optimistically. On failure the snapshot is left untouched and the caller
// gets a MutationError to surface as a blocking alert; writes while offline
// fail immediately.

func (e *Engine) SaveLesson(ctx context.Context, l school.Lesson) (school.Lesson, error) {
	const op = "lesson.save"
	if err := e.guard(op); err != nil {
		return school.Lesson{}, err
	}
	saved, err := e.backend.UpsertLesson(ctx, l)
	if err != nil {
		return school.Lesson{}, core.NewMutationError(op, err)
	}
	e.store.UpsertLesson(saved)
	return saved, nil
}

func (e *Engine) RemoveLesson(ctx context.Context, id string) error {
	const op = "lesson.delete"
	if err := e.guard(op); err != nil {
		return err
	}
	if err := e.backend.DeleteLesson(ctx, id); err != nil {
		return core.NewMutationError(op, err)
	}
	e.store.DeleteLesson(id)
	return nil
}

func (e *Engine) SaveAgendaEntry(ctx context.Context, entry school.AgendaEntry) (school.AgendaEntry, error) {
	const op = "agenda.save"
	if err := e.guard(op); err != nil {
		return school.AgendaEntry{}, err
	}
	saved, err := e.backend.UpsertAgendaEntry(ctx, entry)
	if err != nil {
		return school.AgendaEntry{}, core.NewMutationError(op, err)
	}
	e.store.UpsertAgendaEntry(saved)
	return saved, nil
}

func (e *Engine) RemoveAgendaEntry(ctx context.Context, id string) error {
	const op = "agenda.delete"
	if err := e.guard(op); err != nil {
		return err
	}
	if err := e.backend.DeleteAgendaEntry(ctx, id); err != nil {
		return core.NewMutationError(op, err)
	}
	e.store.DeleteAgendaEntry(id)
	return nil
}

func (e *Engine) SaveLibraryItem(ctx context.Context, it school.LibraryItem) (school.LibraryItem, error) {
	const op = "library.save"
	if err := e.guard(op); err != nil {
		return school.LibraryItem{}, err
	}
	saved, err := e.backend.UpsertLibraryItem(ctx, it)
	if err != nil {
		return school.LibraryItem{}, core.NewMutationError(op, err)
	}
	e.store.UpsertLibraryItem(saved)
	return saved, nil
}

// ChangeUserRole promotes or demotes an identity. Role drift for the locally
// remembered session is picked up by the next sync's reconciliation.
func (e *Engine) ChangeUserRole(ctx context.Context, id, role string) (user.User, error) {
	const op = "user.role"
	if err := e.guard(op); err != nil {
		return user.User{}, err
	}
	if user.RolePriority(role) == 0 {
		err := errors.Errorf("unknown role %q", role)
		return user.User{}, core.NewMutationError(op, core.NewValidationError(
			err, core.FieldError{Field: "role", Error: err.Error()}))
	}
	updated, err := e.backend.UpdateUserRole(ctx, id, role)
	if err != nil {
		return user.User{}, core.NewMutationError(op, err)
	}
	e.store.PatchUser(updated)
	return updated, nil
}
