package graph

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/openshelf/bibliograph-backend/internal/domain"
	"github.com/openshelf/bibliograph-backend/internal/platform/dbctx"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

// HypothesisFilter narrows List. Validated accepts "true", "false" or
// "pending" (pending means no ruling yet); empty means all.
type HypothesisFilter struct {
	AResourceID     uuid.UUID
	HypothesisType  string
	Validated       string
	MinPlausibility float64
	Limit           int
	Offset          int
}

type ValidationCounts struct {
	Pending  int64
	Accepted int64
	Rejected int64
}

type HypothesisRepo interface {
	// Upsert inserts or refreshes the (a, c, type) row. Curator rulings
	// (is_validated, validation_notes) survive refreshes.
	Upsert(dbc dbctx.Context, row *types.DiscoveryHypothesis) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DiscoveryHypothesis, error)
	GetByKey(dbc dbctx.Context, aID, cID uuid.UUID, hypothesisType string) (*types.DiscoveryHypothesis, error)
	List(dbc dbctx.Context, filter HypothesisFilter) ([]*types.DiscoveryHypothesis, error)

	SetValidation(dbc dbctx.Context, id uuid.UUID, isValid bool, notes string) error

	Count(dbc dbctx.Context) (int64, error)
	CountByValidation(dbc dbctx.Context) (ValidationCounts, error)
}

type hypothesisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHypothesisRepo(db *gorm.DB, baseLog *logger.Logger) HypothesisRepo {
	return &hypothesisRepo{db: db, log: baseLog.With("repo", "HypothesisRepo")}
}

func (r *hypothesisRepo) Upsert(dbc dbctx.Context, row *types.DiscoveryHypothesis) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.AResourceID == uuid.Nil || row.CResourceID == uuid.Nil || row.HypothesisType == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.DiscoveredAt.IsZero() {
		row.DiscoveredAt = now
	}

	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "a_resource_id"}, {Name: "c_resource_id"}, {Name: "hypothesis_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"b_resource_ids",
				"plausibility",
				"path_strength",
				"path_length",
				"common_neighbors",
				"discovered_at",
				"updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return MapStorageError("hypothesis upsert", err)
	}
	return nil
}

func (r *hypothesisRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DiscoveryHypothesis, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.DiscoveryHypothesis
	err := t.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, MapStorageError("hypothesis get", err)
	}
	return &out, nil
}

func (r *hypothesisRepo) GetByKey(dbc dbctx.Context, aID, cID uuid.UUID, hypothesisType string) (*types.DiscoveryHypothesis, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if aID == uuid.Nil || cID == uuid.Nil || hypothesisType == "" {
		return nil, nil
	}
	var out types.DiscoveryHypothesis
	err := t.WithContext(dbc.Ctx).
		First(&out, "a_resource_id = ? AND c_resource_id = ? AND hypothesis_type = ?", aID, cID, hypothesisType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, MapStorageError("hypothesis get by key", err)
	}
	return &out, nil
}

func (r *hypothesisRepo) List(dbc dbctx.Context, filter HypothesisFilter) ([]*types.DiscoveryHypothesis, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&types.DiscoveryHypothesis{})
	if filter.AResourceID != uuid.Nil {
		q = q.Where("a_resource_id = ?", filter.AResourceID)
	}
	if filter.HypothesisType != "" {
		q = q.Where("hypothesis_type = ?", filter.HypothesisType)
	}
	switch filter.Validated {
	case "true":
		q = q.Where("is_validated = ?", true)
	case "false":
		q = q.Where("is_validated = ?", false)
	case "pending":
		q = q.Where("is_validated IS NULL")
	}
	if filter.MinPlausibility > 0 {
		q = q.Where("plausibility >= ?", filter.MinPlausibility)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var out []*types.DiscoveryHypothesis
	if err := q.Order("plausibility DESC, discovered_at DESC, id ASC").Find(&out).Error; err != nil {
		return nil, MapStorageError("hypothesis list", err)
	}
	return out, nil
}

func (r *hypothesisRepo) SetValidation(dbc dbctx.Context, id uuid.UUID, isValid bool, notes string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.DiscoveryHypothesis{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_validated":     isValid,
			"validation_notes": notes,
			"updated_at":       time.Now().UTC(),
		}).Error
	if err != nil {
		return MapStorageError("hypothesis set validation", err)
	}
	return nil
}

func (r *hypothesisRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&types.DiscoveryHypothesis{}).Count(&n).Error; err != nil {
		return 0, MapStorageError("hypothesis count", err)
	}
	return n, nil
}

func (r *hypothesisRepo) CountByValidation(dbc dbctx.Context) (ValidationCounts, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out ValidationCounts
	base := func() *gorm.DB {
		return t.WithContext(dbc.Ctx).Model(&types.DiscoveryHypothesis{})
	}
	if err := base().Where("is_validated IS NULL").Count(&out.Pending).Error; err != nil {
		return out, MapStorageError("hypothesis count pending", err)
	}
	if err := base().Where("is_validated = ?", true).Count(&out.Accepted).Error; err != nil {
		return out, MapStorageError("hypothesis count accepted", err)
	}
	if err := base().Where("is_validated = ?", false).Count(&out.Rejected).Error; err != nil {
		return out, MapStorageError("hypothesis count rejected", err)
	}
	return out, nil
}
