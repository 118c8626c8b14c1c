package store

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realtime-editor/internal/model"
	"realtime-editor/internal/shape"
)

// GormStore GORM 기반 Store 구현
type GormStore struct {
	db *gorm.DB
}

// NewGormStore GormStore 생성
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// LoadDocument 문서 트리 조회 (페이지, 도형 id 순)
func (s *GormStore) LoadDocument(ctx context.Context, documentID string) (*DocumentTree, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).
		Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Pages.Shapes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", documentID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("load document", err)
	}

	tree := &DocumentTree{ID: doc.ID, Pages: make([]PageTree, 0, len(doc.Pages))}
	for _, p := range doc.Pages {
		bg := json.RawMessage("null")
		if len(p.Background) > 0 {
			bg = json.RawMessage(p.Background)
		}
		tree.Pages = append(tree.Pages, PageTree{
			ID:         p.ID,
			Width:      p.Width,
			Height:     p.Height,
			Background: bg,
			Shapes:     shape.MergeAll(p.Shapes),
		})
	}
	return tree, nil
}

// LoadAudioCatalog 오디오 카탈로그 조회
func (s *GormStore) LoadAudioCatalog(ctx context.Context) ([]AudioItem, error) {
	var rows []model.Audio
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrap("load audio", err)
	}
	items := make([]AudioItem, 0, len(rows))
	for _, a := range rows {
		items = append(items, AudioItem{ID: a.ID, URL: a.URL})
	}
	return items, nil
}

// UpdateShape 부분 업데이트 (속성 맵은 병합)
func (s *GormStore) UpdateShape(ctx context.Context, shapeID int64, patch shape.Patch) (map[string]any, error) {
	var merged map[string]any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Shape
		if err := tx.Clauses(forUpdate).Where("id = ?", shapeID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		patch.Apply(&row)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		merged = shape.Merge(&row)
		return nil
	})
	if err != nil {
		return nil, wrap("update shape", err)
	}
	return merged, nil
}

// CreateShape 새 도형 생성 (id는 DB가 부여)
func (s *GormStore) CreateShape(ctx context.Context, pageID string, rec shape.Record) (map[string]any, error) {
	var merged map[string]any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pageExists(tx, pageID); err != nil {
			return err
		}
		row := rec.New(pageID)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		merged = shape.Merge(&row)
		return nil
	})
	if err != nil {
		return nil, wrap("create shape", err)
	}
	return merged, nil
}

// SyncPageShapes 페이지 도형 전체 동기화 (upsert + prune)
func (s *GormStore) SyncPageShapes(ctx context.Context, pageID string, recs []shape.Record) ([]map[string]any, error) {
	var result []map[string]any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pageExists(tx, pageID); err != nil {
			return err
		}

		var existing []model.Shape
		if err := tx.Clauses(forUpdate).Where("page_id = ?", pageID).Order("id ASC").Find(&existing).Error; err != nil {
			return err
		}

		plan := shape.Reconcile(pageID, existing, recs)

		for _, row := range plan.Updates {
			if err := tx.Save(row).Error; err != nil {
				return err
			}
		}
		for _, row := range plan.Creates {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		if len(plan.Deletes) > 0 {
			if err := tx.Where("page_id = ? AND id IN ?", pageID, plan.Deletes).Delete(&model.Shape{}).Error; err != nil {
				return err
			}
		}

		result = make([]map[string]any, 0, len(plan.Result))
		for _, row := range plan.Result {
			result = append(result, shape.Merge(row))
		}
		return nil
	})
	if err != nil {
		return nil, wrap("sync page shapes", err)
	}
	return result, nil
}

func pageExists(tx *gorm.DB, pageID string) error {
	var count int64
	if err := tx.Model(&model.Page{}).Where("id = ?", pageID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
