package graph

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

type ResourceRepo interface {
	Create(dbc dbctx.Context, rows []*types.Resource) ([]*types.Resource, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Resource, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Resource, error)

	// ListWithEmbeddings returns resources carrying a non-empty embedding,
	// excluding excludeID when set, capped at limit, id ascending.
	ListWithEmbeddings(dbc dbctx.Context, excludeID uuid.UUID, limit int) ([]*types.Resource, error)

	// ListWithSubjects returns resources carrying at least one subject
	// heading, excluding excludeID when set, capped at limit, id ascending.
	ListWithSubjects(dbc dbctx.Context, excludeID uuid.UUID, limit int) ([]*types.Resource, error)

	Count(dbc dbctx.Context) (int64, error)
}

type resourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return &resourceRepo{db: db, log: baseLog.With("repo", "ResourceRepo")}
}

func (r *resourceRepo) Create(dbc dbctx.Context, rows []*types.Resource) ([]*types.Resource, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Resource{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapStorageError("resource create", err)
	}
	return rows, nil
}

func (r *resourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Resource, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Resource
	err := t.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, MapStorageError("resource get", err)
	}
	return &out, nil
}

func (r *resourceRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Resource, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Resource
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, MapStorageError("resource get by ids", err)
	}
	return out, nil
}

func (r *resourceRepo) ListWithEmbeddings(dbc dbctx.Context, excludeID uuid.UUID, limit int) ([]*types.Resource, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("embedding IS NOT NULL").
		Where("CAST(embedding AS TEXT) NOT IN ('null', '[]')")
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Resource
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, MapStorageError("resource list with embeddings", err)
	}
	return out, nil
}

func (r *resourceRepo) ListWithSubjects(dbc dbctx.Context, excludeID uuid.UUID, limit int) ([]*types.Resource, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("subjects IS NOT NULL").
		Where("CAST(subjects AS TEXT) NOT IN ('null', '[]')")
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Resource
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, MapStorageError("resource list with subjects", err)
	}
	return out, nil
}

func (r *resourceRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&types.Resource{}).Count(&n).Error; err != nil {
		return 0, MapStorageError("resource count", err)
	}
	return n, nil
}
