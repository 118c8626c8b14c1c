package model

import (
	"gorm.io/datatypes"
)

// Document 문서 (페이지 묶음)
type Document struct {
	ID string `gorm:"primaryKey;type:varchar(255)" json:"id"`

	// Relations
	Pages []Page `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"pages"`
}

func (Document) TableName() string {
	return "documents"
}

// Page 문서의 한 페이지
type Page struct {
	ID         string         `gorm:"primaryKey;type:varchar(255)" json:"id"`
	DocumentID string         `gorm:"type:varchar(255);not null;index" json:"document_id"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Background datatypes.JSON `json:"background"` // 예: {"color": {"r": 255, "g": 255, "b": 255}}

	// Relations
	Shapes []Shape `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE" json:"shapes"`
}

func (Page) TableName() string {
	return "pages"
}

// Shape 페이지 위에 배치된 요소 (text, image)
// 좌표 컬럼 외의 속성(text, fontSize, url, animation ...)은 Properties에 저장
type Shape struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PageID     string            `gorm:"type:varchar(255);not null;index" json:"page_id"`
	Kind       string            `gorm:"type:varchar(50)" json:"kind"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	Rotate     *float64          `json:"rotate"`
	Properties datatypes.JSONMap `json:"properties"`
}

func (Shape) TableName() string {
	return "shapes"
}

// Audio 오디오 카탈로그 항목 (읽기 전용)
type Audio struct {
	ID  int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	URL string `gorm:"type:text" json:"url"`
}

func (Audio) TableName() string {
	return "audio"
}

// ShapeKind 도형 종류
type ShapeKind string

const (
	ShapeKindText  ShapeKind = "text"
	ShapeKindImage ShapeKind = "image"
)

func (k ShapeKind) String() string {
	return string(k)
}
