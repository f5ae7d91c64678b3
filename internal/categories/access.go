package categories

import (
	"context"

	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/admins"
)

// AccessStore is the slice of persistence the resolver needs.
type AccessStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GrantFor(ctx context.Context, userID, categoryID uuid.UUID) (*Permission, error)
}

// Resolver is the single authority deciding whether a user may read or
// write within a category. Precedence: lock beats privacy beats ownership;
// admins bypass every rule unconditionally.
type Resolver struct {
	store  AccessStore
	admins admins.Registry
}

// NewResolver constructs a Resolver.
func NewResolver(store AccessStore, registry admins.Registry) *Resolver {
	return &Resolver{store: store, admins: registry}
}

// AccessLevel returns the user's grant level for the category, or nil when
// no grant exists. No default grant is ever synthesized.
func (r *Resolver) AccessLevel(ctx context.Context, userID, categoryID uuid.UUID) (*AccessLevel, error) {
	grant, err := r.store.GrantFor(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, nil
	}
	level := grant.AccessLevel
	return &level, nil
}

// CanWrite decides write eligibility for the category:
// a locked category admits only admins, a private one requires a WRITE
// grant or admin, and a public unlocked one admits any authenticated user.
func (r *Resolver) CanWrite(ctx context.Context, userID uuid.UUID, category *Category) (bool, error) {
	if category.IsLocked {
		return r.admins.IsAdmin(ctx, userID)
	}
	if category.IsPrivate {
		grant, err := r.store.GrantFor(ctx, userID, category.ID)
		if err != nil {
			return false, err
		}
		if grant != nil && grant.AccessLevel == AccessWrite {
			return true, nil
		}
		return r.admins.IsAdmin(ctx, userID)
	}
	return true, nil
}

// CanWriteCategory loads the category and decides write eligibility.
// A missing category surfaces as not found, not as a denial.
func (r *Resolver) CanWriteCategory(ctx context.Context, userID, categoryID uuid.UUID) (bool, *Category, error) {
	category, err := r.store.ByID(ctx, categoryID)
	if err != nil {
		return false, nil, err
	}
	ok, err := r.CanWrite(ctx, userID, category)
	return ok, category, err
}

// CanReadCategory loads the category and decides view eligibility.
// A missing category surfaces as not found, not as a denial.
func (r *Resolver) CanReadCategory(ctx context.Context, userID, authorID, categoryID uuid.UUID) (bool, *Category, error) {
	category, err := r.store.ByID(ctx, categoryID)
	if err != nil {
		return false, nil, err
	}
	ok, err := r.CanRead(ctx, userID, authorID, category)
	return ok, category, err
}

// CanRead decides view eligibility for a topic in the category: public
// categories are readable by anyone authenticated; otherwise the caller
// needs any grant, authorship of the topic, or admin. The lock flag is
// never consulted, so locked categories remain readable.
func (r *Resolver) CanRead(ctx context.Context, userID, authorID uuid.UUID, category *Category) (bool, error) {
	if !category.IsPrivate {
		return true, nil
	}
	grant, err := r.store.GrantFor(ctx, userID, category.ID)
	if err != nil {
		return false, err
	}
	if grant != nil {
		return true, nil
	}
	if userID == authorID {
		return true, nil
	}
	return r.admins.IsAdmin(ctx, userID)
}
