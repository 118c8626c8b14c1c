// Package shape holds the reconciliation rules for shape records.
//
// A shape is stored as fixed geometry columns plus an attribute map. Clients
// only ever see the merged record; Merge is the single place that builds it.
package shape

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gorm.io/datatypes"

	"realtime-editor/internal/model"
)

// ErrMalformedShape is returned when a geometry field holds a non-numeric value.
var ErrMalformedShape = errors.New("malformed shape")

// Fields is a loosely typed shape record as sent by clients.
type Fields map[string]any

const (
	KeyID     = "id"
	KeyKind   = "kind"
	KeyX      = "x"
	KeyY      = "y"
	KeyWidth  = "width"
	KeyHeight = "height"
	KeyRotate = "rotate"
)

// geometryKeys are overwritten directly by a partial update.
var geometryKeys = []string{KeyX, KeyY, KeyWidth, KeyHeight, KeyRotate}

// Defaults for fields absent from a create or sync record.
const (
	DefaultKind   = string(model.ShapeKindText)
	DefaultX      = 0.0
	DefaultY      = 0.0
	DefaultWidth  = 100.0
	DefaultHeight = 100.0
	DefaultRotate = 0.0
)

// Merge returns the outward view of s: columns first, then attributes on top.
func Merge(s *model.Shape) map[string]any {
	out := map[string]any{
		KeyID:     s.ID,
		KeyKind:   s.Kind,
		KeyX:      s.X,
		KeyY:      s.Y,
		KeyWidth:  s.Width,
		KeyHeight: s.Height,
		KeyRotate: nil,
	}
	if s.Rotate != nil {
		out[KeyRotate] = *s.Rotate
	}
	for k, v := range s.Properties {
		out[k] = v
	}
	return out
}

// MergeAll applies Merge to every shape, keeping order.
func MergeAll(shapes []model.Shape) []map[string]any {
	out := make([]map[string]any, 0, len(shapes))
	for i := range shapes {
		out = append(out, Merge(&shapes[i]))
	}
	return out
}

// ID extracts an authoritative-looking id from a record.
// Only integral JSON numbers count; temporary client ids (strings etc.) do not.
func ID(f Fields) (int64, bool) {
	v, ok := f[KeyID]
	if !ok || v == nil {
		return 0, false
	}
	n, ok := number(v)
	if !ok || n != math.Trunc(n) || n < -(1<<63) || n >= 1<<63 {
		return 0, false
	}
	return int64(n), true
}

// Patch is a partial update: only present geometry keys change,
// every other key is merged into the attribute map.
type Patch struct {
	X, Y, Width, Height *float64
	Rotate              *float64
	HasRotate           bool
	Attributes          map[string]any
}

// ParsePatch splits f into geometry overrides and attribute upserts.
func ParsePatch(f Fields) (Patch, error) {
	var p Patch
	targets := map[string]**float64{
		KeyX:      &p.X,
		KeyY:      &p.Y,
		KeyWidth:  &p.Width,
		KeyHeight: &p.Height,
	}
	for key, dst := range targets {
		v, ok := f[key]
		if !ok {
			continue
		}
		n, ok := number(v)
		if !ok {
			return Patch{}, fmt.Errorf("%w: %s is not a number", ErrMalformedShape, key)
		}
		*dst = &n
	}
	if v, ok := f[KeyRotate]; ok {
		r, err := rotate(v)
		if err != nil {
			return Patch{}, err
		}
		p.Rotate, p.HasRotate = r, true
	}

	p.Attributes = make(map[string]any)
	for k, v := range f {
		if k == KeyID || isGeometry(k) {
			continue
		}
		p.Attributes[k] = v
	}
	return p, nil
}

// Apply writes the patch onto s. Existing attribute keys not in the patch survive.
func (p Patch) Apply(s *model.Shape) {
	if p.X != nil {
		s.X = *p.X
	}
	if p.Y != nil {
		s.Y = *p.Y
	}
	if p.Width != nil {
		s.Width = *p.Width
	}
	if p.Height != nil {
		s.Height = *p.Height
	}
	if p.HasRotate {
		s.Rotate = p.Rotate
	}
	if len(p.Attributes) == 0 {
		return
	}
	props := make(datatypes.JSONMap, len(s.Properties)+len(p.Attributes))
	for k, v := range s.Properties {
		props[k] = v
	}
	for k, v := range p.Attributes {
		props[k] = v
	}
	s.Properties = props
}

// Record is a full shape record used by create and sync.
type Record struct {
	ID         int64
	HasID      bool
	Kind       string
	X, Y       float64
	Width      float64
	Height     float64
	Rotate     *float64
	Attributes map[string]any
}

// ParseRecord reads a full record, filling defaults for missing columns.
func ParseRecord(f Fields) (Record, error) {
	r := Record{
		Kind:   DefaultKind,
		X:      DefaultX,
		Y:      DefaultY,
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
	def := DefaultRotate
	r.Rotate = &def
	r.ID, r.HasID = ID(f)

	if v, ok := f[KeyKind]; ok && v != nil {
		kind, ok := v.(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: kind is not a string", ErrMalformedShape)
		}
		r.Kind = kind
	}

	targets := map[string]*float64{
		KeyX:      &r.X,
		KeyY:      &r.Y,
		KeyWidth:  &r.Width,
		KeyHeight: &r.Height,
	}
	for key, dst := range targets {
		v, ok := f[key]
		if !ok {
			continue
		}
		n, ok := number(v)
		if !ok {
			return Record{}, fmt.Errorf("%w: %s is not a number", ErrMalformedShape, key)
		}
		*dst = n
	}
	if v, ok := f[KeyRotate]; ok {
		rot, err := rotate(v)
		if err != nil {
			return Record{}, err
		}
		r.Rotate = rot
	}

	r.Attributes = make(map[string]any)
	for k, v := range f {
		if k == KeyID || k == KeyKind || isGeometry(k) {
			continue
		}
		r.Attributes[k] = v
	}
	return r, nil
}

// Apply overwrites every column of s and replaces its attribute map.
func (r Record) Apply(s *model.Shape) {
	s.Kind = r.Kind
	s.X = r.X
	s.Y = r.Y
	s.Width = r.Width
	s.Height = r.Height
	s.Rotate = r.Rotate
	props := make(datatypes.JSONMap, len(r.Attributes))
	for k, v := range r.Attributes {
		props[k] = v
	}
	s.Properties = props
}

// New builds an unsaved shape on pageID. Any client id is dropped.
func (r Record) New(pageID string) model.Shape {
	s := model.Shape{PageID: pageID}
	r.Apply(&s)
	return s
}

func isGeometry(key string) bool {
	for _, k := range geometryKeys {
		if k == key {
			return true
		}
	}
	return false
}

func rotate(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	n, ok := number(v)
	if !ok {
		return nil, fmt.Errorf("%w: rotate is not a number", ErrMalformedShape)
	}
	return &n, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
