package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/blob"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/pkg/paging"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	Get(ctx context.Context, userID uuid.UUID) (*model.User, error)
	Update(ctx context.Context, userID uuid.UUID, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, in ListUsersInput) (*ListUsersOutput, error)
	Search(ctx context.Context, q string, limit int) ([]*model.User, error)
	SetProfileImage(ctx context.Context, userID uuid.UUID, fh *multipart.FileHeader) (*model.User, error)
}

type CreateUserInput struct {
	Username string     `json:"username" binding:"required,min=3,max=64"`
	Email    string     `json:"email" binding:"required,email"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role" binding:"omitempty,oneof=student admin"`
	Password string     `json:"password" binding:"required,min=8"`
}

type UpdateUserInput struct {
	Email    *string     `json:"email" binding:"omitempty,email"`
	FullName *string     `json:"full_name"`
	Role     *model.Role `json:"role" binding:"omitempty,oneof=student admin"`
	Password *string     `json:"password" binding:"omitempty,min=8"`
}

type ListUsersInput struct {
	Role     model.Role `json:"role"`
	Limit    int        `json:"limit"`
	Cursor   string     `json:"cursor"`
	TimeDesc bool       `json:"time_desc"`
}

type ListUsersOutput struct {
	Items      []*model.User `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

type userService struct {
	r      repo.UserRepo
	blob   blob.Storage
	limits upload.Limits
	log    *zap.Logger
}

func NewUserService(r repo.UserRepo, b blob.Storage, limits upload.Limits, log *zap.Logger) UserService {
	return &userService{r: r, blob: b, limits: limits, log: log}
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	u := &model.User{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		FullName: strings.TrimSpace(in.FullName),
		Role:     in.Role,
	}
	if u.Role == "" {
		u.Role = model.RoleStudent
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.r.Create(ctx, u); err != nil {
		return nil, wrapRepoErr("create user", err)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := s.r.Get(ctx, userID)
	if err != nil {
		return nil, wrapRepoErr("get user", err)
	}
	return u, nil
}

func (s *userService) Update(ctx context.Context, userID uuid.UUID, in UpdateUserInput) (*model.User, error) {
	u, err := s.r.Get(ctx, userID)
	if err != nil {
		return nil, wrapRepoErr("get user", err)
	}

	var fields []string
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		fields = append(fields, "email")
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
		fields = append(fields, "full_name")
	}
	if in.Role != nil {
		u.Role = *in.Role
		fields = append(fields, "role")
	}
	if in.Password != nil {
		if err := u.SetPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields = append(fields, "password_hash")
	}
	if len(fields) == 0 {
		return u, nil
	}

	if err := s.r.Update(ctx, u, fields...); err != nil {
		return nil, wrapRepoErr("update user", err)
	}
	return u, nil
}

func (s *userService) Delete(ctx context.Context, userID uuid.UUID) error {
	return wrapRepoErr("delete user", s.r.Delete(ctx, userID))
}

func (s *userService) List(ctx context.Context, in ListUsersInput) (*ListUsersOutput, error) {
	var afterT time.Time
	var afterID uuid.UUID
	var err error
	if in.Cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
	}

	users, err := s.r.ListWithCursor(ctx, in.Role, afterT, afterID, in.Limit+1, in.TimeDesc)
	if err != nil {
		return nil, err
	}

	out := &ListUsersOutput{Items: users}
	if len(users) > in.Limit {
		out.HasMore = true
		out.Items = users[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (s *userService) Search(ctx context.Context, q string, limit int) ([]*model.User, error) {
	if strings.TrimSpace(q) == "" {
		return []*model.User{}, nil
	}
	return s.r.Search(ctx, q, limit)
}

func (s *userService) SetProfileImage(ctx context.Context, userID uuid.UUID, fh *multipart.FileHeader) (*model.User, error) {
	u, err := s.r.Get(ctx, userID)
	if err != nil {
		return nil, wrapRepoErr("get user", err)
	}

	acc, err := upload.CheckHeader(fh, upload.CategoryImage, s.limits)
	if err != nil {
		return nil, err
	}
	fh.Header.Set("Content-Type", acc.MIME)

	meta, err := s.blob.UploadFormFile(ctx, "profiles/"+userID.String(), fh)
	if err != nil {
		return nil, fmt.Errorf("upload profile image: %w", err)
	}

	old := u.ProfileImage
	u.ProfileImage = meta.Key
	if err := s.r.Update(ctx, u, "profile_image"); err != nil {
		s.removeBlob(ctx, meta.Key)
		return nil, wrapRepoErr("update user", err)
	}
	if old != "" && old != meta.Key {
		s.removeBlob(ctx, old)
	}
	return u, nil
}

func (s *userService) removeBlob(ctx context.Context, key string) {
	if err := s.blob.Delete(ctx, key); err != nil {
		s.log.Warn("delete blob", zap.String("key", key), zap.Error(err))
	}
}
