package data

import (
	"context"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/markee/app/display/internal/domain"
	"github.com/iWorld-y/markee/app/display/internal/repo"
	"github.com/iWorld-y/markee/app/planner/pkg/storage"
)

type userRepo struct {
	data *Data
	log  *log.Helper
}

func NewUserRepo(data *Data, logger log.Logger) repo.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *userRepo) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.data.store.CreateUser(ctx, u.Username, u.PasswordHash)
	if errors.Is(err, storage.ErrDuplicate) {
		return kerrors.Conflict("USER_EXISTS", "username already taken")
	}
	return err
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := r.data.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, kerrors.NotFound("USER_NOT_FOUND", "user not found")
		}
		return nil, err
	}
	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	}, nil
}
