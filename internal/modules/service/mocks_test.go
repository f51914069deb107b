package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/blob"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProjectRepo is a mock implementation of ProjectRepo
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Create(ctx context.Context, p *model.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProjectRepo) Update(ctx context.Context, p *model.Project, added []model.ProjectFile, replaced []string) error {
	args := m.Called(ctx, p, added, replaced)
	return args.Error(0)
}

func (m *MockProjectRepo) Get(ctx context.Context, projectID uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) Delete(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProjectRepo) ListWithCursor(ctx context.Context, f repo.ProjectFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.Project, error) {
	args := m.Called(ctx, f, afterCreatedAt, afterID, limit, timeDesc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Project), args.Error(1)
}

func (m *MockProjectRepo) SetStatusWithReview(ctx context.Context, review *model.ProjectReview) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockProjectRepo) ListReviews(ctx context.Context, projectID uuid.UUID) ([]model.ProjectReview, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectReview), args.Error(1)
}

func (m *MockProjectRepo) IncrementViews(ctx context.Context, projectID uuid.UUID) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// MockFileRepo is a mock implementation of FileRepo
type MockFileRepo struct {
	mock.Mock
}

func (m *MockFileRepo) GetByID(ctx context.Context, projectID, fileID uuid.UUID) (*model.ProjectFile, error) {
	args := m.Called(ctx, projectID, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectFile), args.Error(1)
}

func (m *MockFileRepo) GetByPath(ctx context.Context, projectID uuid.UUID, path string) (*model.ProjectFile, error) {
	args := m.Called(ctx, projectID, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectFile), args.Error(1)
}

func (m *MockFileRepo) Delete(ctx context.Context, f *model.ProjectFile) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFileRepo) ClearPrimaryImage(ctx context.Context, projectID uuid.UUID, path string) error {
	args := m.Called(ctx, projectID, path)
	return args.Error(0)
}

// MockUserRepo is a mock implementation of UserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, u *model.User, fields ...string) error {
	args := m.Called(ctx, u, fields)
	return args.Error(0)
}

func (m *MockUserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepo) Search(ctx context.Context, q string, limit int) ([]*model.User, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepo) CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepo) ListWithCursor(ctx context.Context, role model.Role, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]*model.User, error) {
	args := m.Called(ctx, role, afterCreatedAt, afterID, limit, timeDesc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

// MockLogRepo is a mock implementation of LogRepo
type MockLogRepo struct {
	mock.Mock
}

func (m *MockLogRepo) CreateLogin(ctx context.Context, l *model.LoginLog) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLogRepo) CreateView(ctx context.Context, v *model.VisitorView) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockLogRepo) ListLogins(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.LoginLog, error) {
	args := m.Called(ctx, afterCreatedAt, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LoginLog), args.Error(1)
}

func (m *MockLogRepo) ListViews(ctx context.Context, projectID *uuid.UUID, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.VisitorView, error) {
	args := m.Called(ctx, projectID, afterCreatedAt, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.VisitorView), args.Error(1)
}

func (m *MockLogRepo) ListReviews(ctx context.Context, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]*model.ProjectReview, error) {
	args := m.Called(ctx, afterCreatedAt, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ProjectReview), args.Error(1)
}

// MockStatsRepo is a mock implementation of StatsRepo
type MockStatsRepo struct {
	mock.Mock
}

func (m *MockStatsRepo) CountProjectsBy(ctx context.Context, column string) ([]repo.KeyCount, error) {
	args := m.Called(ctx, column)
	return args.Get(0).([]repo.KeyCount), args.Error(1)
}

func (m *MockStatsRepo) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepo) DailyViews(ctx context.Context, since time.Time) ([]repo.DailyCount, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]repo.DailyCount), args.Error(1)
}

func (m *MockStatsRepo) DailyLogins(ctx context.Context, since time.Time) ([]repo.DailyCount, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]repo.DailyCount), args.Error(1)
}

func (m *MockStatsRepo) TopViewed(ctx context.Context, limit int) ([]*model.Project, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*model.Project), args.Error(1)
}

// MockStorage is a mock implementation of blob storage. UploadFormFile
// stores every file under keyPrefix/filename unless told otherwise.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UploadFormFile(ctx context.Context, keyPrefix string, fh *multipart.FileHeader) (*blob.UploadedMeta, error) {
	args := m.Called(ctx, keyPrefix, fh)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return &blob.UploadedMeta{
		Key:   keyPrefix + "/" + fh.Filename,
		MIME:  fh.Header.Get("Content-Type"),
		SizeB: fh.Size,
	}, nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

// MockPublisher is a mock implementation of the event publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	args := m.Called(ctx, routingKey, v)
	return args.Error(0)
}

// MockStore is a mock implementation of the redis store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	args := m.Called(ctx, key, v)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	args := m.Called(ctx, key, v, ttl)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

var pdfBytes = []byte("%PDF-1.4\n%%EOF\n")

// formFile builds a real multipart file header the way gin would hand it
// to a handler.
func formFile(t *testing.T, field, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}
