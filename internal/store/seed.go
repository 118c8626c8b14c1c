package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"realtime-editor/internal/model"
	"realtime-editor/internal/shape"
)

// SeedDocument 시드용 문서 JSON
type SeedDocument struct {
	ID    string     `json:"id"`
	Pages []SeedPage `json:"pages"`
}

// SeedPage 시드용 페이지 JSON (도형은 병합된 형태)
type SeedPage struct {
	ID         string          `json:"id"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Background json.RawMessage `json:"background"`
	Shapes     []shape.Fields  `json:"shapes"`
}

// SeedAudio 시드용 오디오 JSON
type SeedAudio struct {
	URL string `json:"url"`
}

// Seed 문서와 오디오 카탈로그를 한 트랜잭션으로 가져온다.
// 문서가 이미 하나라도 있으면 아무것도 하지 않고 false를 반환한다.
func Seed(ctx context.Context, db *gorm.DB, doc *SeedDocument, audio []SeedAudio) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Document{}).Count(&count).Error; err != nil {
		return false, wrap("seed", err)
	}
	if count > 0 {
		log.Println("[Seed] Data already seeded, skipping")
		return false, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if doc != nil {
			if err := tx.Create(&model.Document{ID: doc.ID}).Error; err != nil {
				return err
			}
			for _, p := range doc.Pages {
				page := model.Page{
					ID:         p.ID,
					DocumentID: doc.ID,
					Width:      p.Width,
					Height:     p.Height,
					Background: datatypes.JSON(p.Background),
				}
				if err := tx.Create(&page).Error; err != nil {
					return err
				}
				for i, f := range p.Shapes {
					rec, err := shape.ParseRecord(f)
					if err != nil {
						return fmt.Errorf("page %s shape %d: %w", p.ID, i, err)
					}
					row := rec.New(p.ID)
					if err := tx.Create(&row).Error; err != nil {
						return err
					}
				}
			}
		}
		for _, a := range audio {
			if err := tx.Create(&model.Audio{URL: a.URL}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, wrap("seed", err)
	}
	return true, nil
}
