package protocol

import "encoding/json"

// Outbound event names.
const (
	EventPong            = "pong"
	EventError           = "error"
	EventEcho            = "echo"
	EventDocumentLoaded  = "document_loaded_binary"
	EventAudioLoaded     = "audio_loaded"
	EventShapeUpdated    = "shape_updated"
	EventShapeCreated    = "shape_created"
	EventShapeCreatedAck = "shape_created_ack"
	EventPageStateSynced = "page_state_synced"
)

// Error messages sent to the client.
const (
	MsgMalformedFrame   = "Malformed frame"
	MsgDocumentNotFound = "Document not found"
	MsgShapeNotFound    = "Shape not found"
	MsgPageNotFound     = "Page not found"
	MsgStoreError       = "Store error"
)

// Pong 하트비트 응답
type Pong struct {
	Event string `json:"event"`
}

// Error 송신자에게만 보내는 오류
type Error struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// Echo 인식하지 못한 메시지를 그대로 돌려준다
type Echo struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Data data 필드 하나를 싣는 이벤트
// (document_loaded_binary, audio_loaded, shape_updated, shape_created)
type Data struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ShapeCreatedAck 생성자에게 임시 id와 실제 id를 알려준다
type ShapeCreatedAck struct {
	Event  string          `json:"event"`
	TempID json.RawMessage `json:"temp_id"`
	Data   any             `json:"data"`
}

// PageStateSynced 페이지 전체 동기화 결과
type PageStateSynced struct {
	Event  string `json:"event"`
	PageID string `json:"page_id"`
	Shapes any    `json:"shapes"`
}

func NewPong() Pong {
	return Pong{Event: EventPong}
}

func NewError(message string) Error {
	return Error{Event: EventError, Message: message}
}

func NewEcho(raw json.RawMessage) Echo {
	return Echo{Event: EventEcho, Data: raw}
}

func NewData(event string, data any) Data {
	return Data{Event: event, Data: data}
}

func NewShapeCreatedAck(tempID json.RawMessage, data any) ShapeCreatedAck {
	if len(tempID) == 0 {
		tempID = json.RawMessage("null")
	}
	return ShapeCreatedAck{Event: EventShapeCreatedAck, TempID: tempID, Data: data}
}

func NewPageStateSynced(pageID string, shapes any) PageStateSynced {
	return PageStateSynced{Event: EventPageStateSynced, PageID: pageID, Shapes: shapes}
}
