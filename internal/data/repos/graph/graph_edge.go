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

type EdgeTypeCount struct {
	EdgeType string
	Count    int64
}

type GraphEdgeRepo interface {
	Create(dbc dbctx.Context, rows []*types.GraphEdge) ([]*types.GraphEdge, error)
	Upsert(dbc dbctx.Context, row *types.GraphEdge) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GraphEdge, error)
	GetBySourceIDs(dbc dbctx.Context, sourceIDs []uuid.UUID) ([]*types.GraphEdge, error)
	GetByTargetIDs(dbc dbctx.Context, targetIDs []uuid.UUID) ([]*types.GraphEdge, error)
	GetByResourceIDs(dbc dbctx.Context, resourceIDs []uuid.UUID) ([]*types.GraphEdge, error)
	GetBetween(dbc dbctx.Context, sourceID, targetID uuid.UUID) ([]*types.GraphEdge, error)

	// DegreeCounts returns the total explicit-edge degree (in plus out) per
	// resource id.
	DegreeCounts(dbc dbctx.Context, resourceIDs []uuid.UUID) (map[uuid.UUID]int, error)

	UpdateWeight(dbc dbctx.Context, id uuid.UUID, weight float64) error

	Count(dbc dbctx.Context) (int64, error)
	CountByType(dbc dbctx.Context) ([]EdgeTypeCount, error)
}

type graphEdgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGraphEdgeRepo(db *gorm.DB, baseLog *logger.Logger) GraphEdgeRepo {
	return &graphEdgeRepo{db: db, log: baseLog.With("repo", "GraphEdgeRepo")}
}

func (r *graphEdgeRepo) Create(dbc dbctx.Context, rows []*types.GraphEdge) ([]*types.GraphEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.GraphEdge{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, MapStorageError("edge create", err)
	}
	return rows, nil
}

func (r *graphEdgeRepo) Upsert(dbc dbctx.Context, row *types.GraphEdge) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.SourceID == uuid.Nil || row.TargetID == uuid.Nil || row.EdgeType == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Weight = clampWeight(row.Weight)
	row.UpdatedAt = time.Now().UTC()

	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source_id"}, {Name: "target_id"}, {Name: "edge_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"weight",
				"updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return MapStorageError("edge upsert", err)
	}
	return nil
}

func (r *graphEdgeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GraphEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.GraphEdge
	err := t.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, MapStorageError("edge get", err)
	}
	return &out, nil
}

func (r *graphEdgeRepo) GetBySourceIDs(dbc dbctx.Context, sourceIDs []uuid.UUID) ([]*types.GraphEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.GraphEdge
	if len(sourceIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("source_id IN ?", sourceIDs).
		Order("source_id ASC, weight DESC, target_id ASC").
		Find(&out).Error; err != nil {
		return nil, MapStorageError("edge get by sources", err)
	}
	return out, nil
}

func (r *graphEdgeRepo) GetByTargetIDs(dbc dbctx.Context, targetIDs []uuid.UUID) ([]*types.GraphEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.GraphEdge
	if len(targetIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("target_id IN ?", targetIDs).
		Order("target_id ASC, weight DESC, source_id ASC").
		Find(&out).Error; err != nil {
		return nil, MapStorageError("edge get by targets", err)
	}
	return out, nil
}

func (r *graphEdgeRepo) GetByResourceIDs(dbc dbctx.Context, resourceIDs []uuid.UUID) ([]*types.GraphEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.GraphEdge
	if len(resourceIDs) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("source_id IN ? OR target_id IN ?", resourceIDs, resourceIDs).
		Order("weight DESC, source_id ASC, target_id ASC").
		Find(&out).Error; err != nil {
		return nil, MapStorageError("edge get by resources", err)
	}
	return out, nil
}

func (r *graphEdgeRepo) GetBetween(dbc dbctx.Context, sourceID, targetID uuid.UUID) ([]*types.GraphEdge, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sourceID == uuid.Nil || targetID == uuid.Nil {
		return nil, nil
	}
	var out []*types.GraphEdge
	if err := t.WithContext(dbc.Ctx).
		Where("source_id = ? AND target_id = ?", sourceID, targetID).
		Order("weight DESC, edge_type ASC").
		Find(&out).Error; err != nil {
		return nil, MapStorageError("edge get between", err)
	}
	return out, nil
}

func (r *graphEdgeRepo) DegreeCounts(dbc dbctx.Context, resourceIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := make(map[uuid.UUID]int, len(resourceIDs))
	if len(resourceIDs) == 0 {
		return out, nil
	}
	type row struct {
		ResourceID uuid.UUID
		Degree     int
	}
	var rows []row
	err := t.WithContext(dbc.Ctx).Raw(`
		SELECT resource_id, COUNT(*) AS degree FROM (
			SELECT source_id AS resource_id FROM graph_edge
			WHERE deleted_at IS NULL AND source_id IN ?
			UNION ALL
			SELECT target_id AS resource_id FROM graph_edge
			WHERE deleted_at IS NULL AND target_id IN ?
		) endpoints
		GROUP BY resource_id
	`, resourceIDs, resourceIDs).Scan(&rows).Error
	if err != nil {
		return nil, MapStorageError("edge degree counts", err)
	}
	for _, rr := range rows {
		out[rr.ResourceID] = rr.Degree
	}
	return out, nil
}

func (r *graphEdgeRepo) UpdateWeight(dbc dbctx.Context, id uuid.UUID, weight float64) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.GraphEdge{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"weight":     clampWeight(weight),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return MapStorageError("edge update weight", err)
	}
	return nil
}

// Weights are [0,1] by contract; clamp at the write boundary.
func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func (r *graphEdgeRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).Model(&types.GraphEdge{}).Count(&n).Error; err != nil {
		return 0, MapStorageError("edge count", err)
	}
	return n, nil
}

func (r *graphEdgeRepo) CountByType(dbc dbctx.Context) ([]EdgeTypeCount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []EdgeTypeCount
	err := t.WithContext(dbc.Ctx).
		Model(&types.GraphEdge{}).
		Select("edge_type, COUNT(*) AS count").
		Group("edge_type").
		Order("edge_type ASC").
		Scan(&out).Error
	if err != nil {
		return nil, MapStorageError("edge count by type", err)
	}
	return out, nil
}
