package repository

import (
	"context"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

// PullRequestRepository backs C11's deletion consumer: the REST layer owns
// pull request rows end-to-end (out of scope here per spec.md §1); this
// repository only exposes the one operation the reaper needs.
type PullRequestRepository struct {
	store *store.Store
}

func NewPullRequestRepository(s *store.Store) *PullRequestRepository {
	return &PullRequestRepository{store: s}
}

// Delete removes the pull request row identified by id.
func (r *PullRequestRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.store.Exec(ctx, `DELETE FROM pull_requests WHERE id = $1`, id)
	if err != nil {
		return apperrors.DBErr("delete pull request", err)
	}
	return nil
}
