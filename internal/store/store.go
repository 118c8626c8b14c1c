package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"realtime-editor/internal/shape"
)

// ErrNotFound 참조한 문서/페이지/도형이 없음
var ErrNotFound = errors.New("not found")

// StoreError 영속 계층 실패 (재시도하지 않음)
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrap ErrNotFound는 그대로, 나머지는 StoreError로 감싼다
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// DocumentTree 문서 전체 트리 (도형은 병합된 형태)
type DocumentTree struct {
	ID    string     `json:"id"`
	Pages []PageTree `json:"pages"`
}

// PageTree 페이지와 병합된 도형 목록
type PageTree struct {
	ID         string           `json:"id"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Background json.RawMessage  `json:"background"`
	Shapes     []map[string]any `json:"shapes"`
}

// AudioItem 오디오 카탈로그 항목
type AudioItem struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Store 문서 저장소 어댑터
//
// UpdateShape, CreateShape, SyncPageShapes는 각각 원자적이어야 한다.
type Store interface {
	LoadDocument(ctx context.Context, documentID string) (*DocumentTree, error)
	LoadAudioCatalog(ctx context.Context) ([]AudioItem, error)
	UpdateShape(ctx context.Context, shapeID int64, patch shape.Patch) (map[string]any, error)
	CreateShape(ctx context.Context, pageID string, rec shape.Record) (map[string]any, error)
	SyncPageShapes(ctx context.Context, pageID string, recs []shape.Record) ([]map[string]any, error)
}
