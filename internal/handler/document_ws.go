package handler

import (
	"context"
	"errors"
	"log"
	"runtime/debug"

	"github.com/gofiber/contrib/websocket"

	"realtime-editor/internal/hub"
	"realtime-editor/internal/metrics"
	"realtime-editor/internal/presence"
	"realtime-editor/internal/protocol"
	"realtime-editor/internal/storage"
	"realtime-editor/internal/store"
)

// DocumentWSHandler 문서 편집 WebSocket 핸들러
// 연결마다 하나의 수신 루프를 돌며, 메시지는 수신 순서대로 하나씩 처리한다.
type DocumentWSHandler struct {
	store      store.Store
	dispatcher *hub.Dispatcher
	presence   presence.Tracker
	blobs      storage.BlobFetcher
	metrics    *metrics.Metrics
}

// DocumentWSOption 선택 의존성 주입
type DocumentWSOption func(*DocumentWSHandler)

// WithPresence presence 추적기 설정
func WithPresence(t presence.Tracker) DocumentWSOption {
	return func(h *DocumentWSHandler) { h.presence = t }
}

// WithBlobFetcher 이미지 blob 첨부 활성화
func WithBlobFetcher(f storage.BlobFetcher) DocumentWSOption {
	return func(h *DocumentWSHandler) { h.blobs = f }
}

// WithMetrics 지표 설정
func WithMetrics(m *metrics.Metrics) DocumentWSOption {
	return func(h *DocumentWSHandler) { h.metrics = m }
}

// NewDocumentWSHandler DocumentWSHandler 생성
func NewDocumentWSHandler(st store.Store, d *hub.Dispatcher, opts ...DocumentWSOption) *DocumentWSHandler {
	h := &DocumentWSHandler{
		store:      st,
		dispatcher: d,
		presence:   presence.Nop{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWebSocket WebSocket 연결 처리
func (h *DocumentWSHandler) HandleWebSocket(c *websocket.Conn) {
	h.Serve(c)
}

// Serve runs the session loop for conn until the transport fails or a
// dispatch panics. The session is always removed from the registry on return.
func (h *DocumentWSHandler) Serve(conn hub.Conn) {
	registry := h.dispatcher.Registry()
	s := registry.Connect(conn)
	defer registry.Disconnect(conn)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Session %s] ❌ Panic in dispatch: %v\n%s", s.ID, r, debug.Stack())
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.IsOpen() {
				log.Printf("[Session %s] Read ended: %v", s.ID, err)
			}
			return
		}
		if !s.IsOpen() {
			return
		}
		h.handleMessage(ctx, s, data)
	}
}

// handleMessage 메시지 1건 디코드 및 처리
func (h *DocumentWSHandler) handleMessage(ctx context.Context, s *hub.Session, data []byte) {
	ev, err := protocol.ParseMessage(data)
	if err != nil {
		h.metrics.MalformedFrame()
		log.Printf("[Session %s] Malformed frame (%d bytes): %v", s.ID, len(data), err)
		h.reply(s, protocol.NewError(protocol.MsgMalformedFrame))
		return
	}
	h.metrics.ObserveEvent(ev.Name())

	switch e := ev.(type) {
	case protocol.Ping:
		h.presence.Heartbeat(s.ID)
		h.reply(s, protocol.NewPong())

	case protocol.LoadDocument:
		h.handleLoadDocument(ctx, s, e)

	case protocol.LoadAudio:
		items, err := h.store.LoadAudioCatalog(ctx)
		if err != nil {
			h.replyStoreError(s, e, err, "")
			return
		}
		h.reply(s, protocol.NewData(protocol.EventAudioLoaded, items))

	case protocol.ShapeUpdate:
		merged, err := h.store.UpdateShape(ctx, e.ShapeID, e.Patch)
		if err != nil {
			h.replyStoreError(s, e, err, protocol.MsgShapeNotFound)
			return
		}
		h.dispatcher.Broadcast(protocol.NewData(protocol.EventShapeUpdated, merged), s)

	case protocol.ShapeCreate:
		created, err := h.store.CreateShape(ctx, e.PageID, e.Record)
		if err != nil {
			h.replyStoreError(s, e, err, protocol.MsgPageNotFound)
			return
		}
		h.dispatcher.Broadcast(protocol.NewData(protocol.EventShapeCreated, created), s)
		h.reply(s, protocol.NewShapeCreatedAck(e.TempID, created))

	case protocol.SyncPageShapes:
		shapes, err := h.store.SyncPageShapes(ctx, e.PageID, e.Records)
		if err != nil {
			h.replyStoreError(s, e, err, protocol.MsgPageNotFound)
			return
		}
		log.Printf("[Session %s] Synced page %s: %d shapes", s.ID, e.PageID, len(shapes))
		h.dispatcher.Broadcast(protocol.NewPageStateSynced(e.PageID, shapes), nil)

	case protocol.Unknown:
		h.reply(s, protocol.NewEcho(e.Raw))

	case protocol.Ignored:
		log.Printf("[Session %s] Ignoring %s without %s", s.ID, e.Event, e.Missing)
	}
}

func (h *DocumentWSHandler) handleLoadDocument(ctx context.Context, s *hub.Session, e protocol.LoadDocument) {
	tree, err := h.store.LoadDocument(ctx, e.DocumentID)
	if err != nil {
		h.replyStoreError(s, e, err, protocol.MsgDocumentNotFound)
		return
	}
	blobs := storage.EmbedImages(ctx, h.blobs, tree)
	log.Printf("[Session %s] Loaded document %s (%d pages, %d blobs)",
		s.ID, tree.ID, len(tree.Pages), len(blobs))
	h.reply(s, protocol.NewData(protocol.EventDocumentLoaded, tree), blobs...)
}

// reply 송신자에게만 전송 (실패 시 Dispatcher가 세션을 정리한다)
func (h *DocumentWSHandler) reply(s *hub.Session, event any, blobs ...[]byte) {
	_ = h.dispatcher.SendTo(s, event, blobs...)
}

// replyStoreError NotFound는 notFoundMsg로, 그 외 저장소 실패는 "Store error"로 응답
func (h *DocumentWSHandler) replyStoreError(s *hub.Session, e protocol.Event, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) && notFoundMsg != "" {
		h.reply(s, protocol.NewError(notFoundMsg))
		return
	}
	log.Printf("[Session %s] ❌ %s failed: %v", s.ID, e.Name(), err)
	h.reply(s, protocol.NewError(protocol.MsgStoreError))
}
