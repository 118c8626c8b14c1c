// Package protocol defines the editor's event envelopes.
//
// Inbound messages are parsed once into one of the Event variants below;
// required fields are validated here so handlers never see partial input.
package protocol

import (
	"bytes"
	"encoding/json"

	"realtime-editor/internal/frame"
	"realtime-editor/internal/shape"
)

// Inbound event names.
const (
	EventPing           = "ping"
	EventLoadDocument   = "load_document"
	EventLoadAudio      = "load_audio"
	EventShapeUpdate    = "shape_update"
	EventShapeCreate    = "shape_create"
	EventSyncPageShapes = "sync_page_shapes"
)

// Event is one parsed inbound message.
type Event interface {
	Name() string
}

// Ping asks for a pong.
type Ping struct{}

// LoadDocument asks for a document tree.
type LoadDocument struct {
	DocumentID string
}

// LoadAudio asks for the audio catalog.
type LoadAudio struct{}

// ShapeUpdate is a partial update of one shape.
type ShapeUpdate struct {
	ShapeID int64
	Patch   shape.Patch
}

// ShapeCreate creates a shape on a page. TempID is the client's provisional
// id, echoed back verbatim in the ack.
type ShapeCreate struct {
	PageID string
	TempID json.RawMessage
	Record shape.Record
}

// SyncPageShapes replaces a page's shape set.
type SyncPageShapes struct {
	PageID  string
	Records []shape.Record
}

// Unknown is an unrecognized event or a malformed shape payload; it is echoed back.
type Unknown struct {
	Raw json.RawMessage
}

// Ignored is a known event missing a required field; it gets no reply.
type Ignored struct {
	Event   string
	Missing string
}

func (Ping) Name() string           { return EventPing }
func (LoadDocument) Name() string   { return EventLoadDocument }
func (LoadAudio) Name() string      { return EventLoadAudio }
func (ShapeUpdate) Name() string    { return EventShapeUpdate }
func (ShapeCreate) Name() string    { return EventShapeCreate }
func (SyncPageShapes) Name() string { return EventSyncPageShapes }
func (Unknown) Name() string        { return "unknown" }
func (i Ignored) Name() string      { return i.Event }

var barePing = []byte("ping")

// ParseMessage decodes one inbound client message.
// It fails only with frame.ErrMalformedFrame.
func ParseMessage(data []byte) (Event, error) {
	if bytes.Equal(bytes.TrimSpace(data), barePing) {
		return Ping{}, nil
	}
	raw, err := frame.Decode(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw), nil
}

// Parse maps valid JSON onto an Event variant.
func Parse(raw json.RawMessage) Event {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == EventPing {
			return Ping{}
		}
		return Unknown{Raw: raw}
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil || env == nil {
		return Unknown{Raw: raw}
	}
	var name string
	if err := json.Unmarshal(env["event"], &name); err != nil {
		return Unknown{Raw: raw}
	}

	switch name {
	case EventPing:
		return Ping{}

	case EventLoadAudio:
		return LoadAudio{}

	case EventLoadDocument:
		id, ok := stringField(env, "document_id")
		if !ok {
			return Ignored{Event: name, Missing: "document_id"}
		}
		return LoadDocument{DocumentID: id}

	case EventShapeUpdate:
		data, present, ok := objectField(env, "data")
		if !present {
			return Ignored{Event: name, Missing: "data"}
		}
		if !ok {
			return Unknown{Raw: raw}
		}
		id, ok := shape.ID(data)
		if !ok {
			return Ignored{Event: name, Missing: "data.id"}
		}
		patch, err := shape.ParsePatch(data)
		if err != nil {
			return Unknown{Raw: raw}
		}
		return ShapeUpdate{ShapeID: id, Patch: patch}

	case EventShapeCreate:
		data, present, ok := objectField(env, "data")
		if !present {
			return Ignored{Event: name, Missing: "data"}
		}
		pageID, hasPage := stringField(env, "page_id")
		if !hasPage {
			return Ignored{Event: name, Missing: "page_id"}
		}
		if !ok {
			return Unknown{Raw: raw}
		}
		rec, err := shape.ParseRecord(data)
		if err != nil {
			return Unknown{Raw: raw}
		}
		return ShapeCreate{PageID: pageID, TempID: tempID(env, data), Record: rec}

	case EventSyncPageShapes:
		pageID, hasPage := stringField(env, "page_id")
		if !hasPage {
			return Ignored{Event: name, Missing: "page_id"}
		}
		list, ok := env["shapes"]
		if !ok || isNull(list) {
			return Ignored{Event: name, Missing: "shapes"}
		}
		var items []shape.Fields
		if err := json.Unmarshal(list, &items); err != nil {
			return Unknown{Raw: raw}
		}
		recs := make([]shape.Record, 0, len(items))
		for _, item := range items {
			if item == nil {
				return Unknown{Raw: raw}
			}
			rec, err := shape.ParseRecord(item)
			if err != nil {
				return Unknown{Raw: raw}
			}
			recs = append(recs, rec)
		}
		return SyncPageShapes{PageID: pageID, Records: recs}

	default:
		return Unknown{Raw: raw}
	}
}

func stringField(env map[string]json.RawMessage, key string) (string, bool) {
	v, ok := env[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// objectField reports whether key is present (and non-null) and whether it is a JSON object.
func objectField(env map[string]json.RawMessage, key string) (shape.Fields, bool, bool) {
	v, ok := env[key]
	if !ok || isNull(v) {
		return nil, false, false
	}
	var f shape.Fields
	if err := json.Unmarshal(v, &f); err != nil {
		return nil, true, false
	}
	return f, true, true
}

func tempID(env map[string]json.RawMessage, data shape.Fields) json.RawMessage {
	if v, ok := env["temp_id"]; ok {
		return v
	}
	if v, ok := data[shape.KeyID]; ok {
		if b, err := json.Marshal(v); err == nil {
			return b
		}
	}
	return json.RawMessage("null")
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
