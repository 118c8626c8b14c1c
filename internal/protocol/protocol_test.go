package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-editor/internal/frame"
)

func parse(t *testing.T, s string) Event {
	t.Helper()
	ev, err := ParseMessage([]byte(s))
	require.NoError(t, err)
	return ev
}

func TestParsePing(t *testing.T) {
	assert.Equal(t, Ping{}, parse(t, `ping`))
	assert.Equal(t, Ping{}, parse(t, `"ping"`))
	assert.Equal(t, Ping{}, parse(t, `{"event":"ping"}`))
}

func TestParseMalformed(t *testing.T) {
	_, err := ParseMessage([]byte{0xc3, 0x28})
	assert.ErrorIs(t, err, frame.ErrMalformedFrame)

	_, err = ParseMessage([]byte(`{"event": "ping"`))
	assert.ErrorIs(t, err, frame.ErrMalformedFrame)
}

func TestParseLoadDocument(t *testing.T) {
	assert.Equal(t, LoadDocument{DocumentID: "doc-1"}, parse(t, `{"event":"load_document","document_id":"doc-1"}`))
	assert.Equal(t, Ignored{Event: EventLoadDocument, Missing: "document_id"}, parse(t, `{"event":"load_document"}`))
}

func TestParseShapeUpdate(t *testing.T) {
	ev := parse(t, `{"event":"shape_update","data":{"id":4,"x":5,"text":"hi"}}`)
	upd, ok := ev.(ShapeUpdate)
	require.True(t, ok)
	assert.Equal(t, int64(4), upd.ShapeID)
	require.NotNil(t, upd.Patch.X)
	assert.Equal(t, 5.0, *upd.Patch.X)
	assert.Equal(t, map[string]any{"text": "hi"}, upd.Patch.Attributes)

	assert.IsType(t, Ignored{}, parse(t, `{"event":"shape_update","data":{"x":5}}`))
	assert.IsType(t, Ignored{}, parse(t, `{"event":"shape_update"}`))
	assert.IsType(t, Unknown{}, parse(t, `{"event":"shape_update","data":[1,2]}`))
	assert.IsType(t, Unknown{}, parse(t, `{"event":"shape_update","data":{"id":4,"x":"left"}}`))
}

func TestParseShapeCreate(t *testing.T) {
	ev := parse(t, `{"event":"shape_create","page_id":"p1","data":{"id":"tmp-1","kind":"image","url":"a.png"}}`)
	c, ok := ev.(ShapeCreate)
	require.True(t, ok)
	assert.Equal(t, "p1", c.PageID)
	assert.JSONEq(t, `"tmp-1"`, string(c.TempID))
	assert.Equal(t, "image", c.Record.Kind)
	assert.False(t, c.Record.HasID)

	ev = parse(t, `{"event":"shape_create","page_id":"p1","temp_id":17,"data":{"id":9999}}`)
	c = ev.(ShapeCreate)
	assert.JSONEq(t, `17`, string(c.TempID))

	ev = parse(t, `{"event":"shape_create","page_id":"p1","data":{}}`)
	assert.JSONEq(t, `null`, string(ev.(ShapeCreate).TempID))

	assert.IsType(t, Ignored{}, parse(t, `{"event":"shape_create","data":{}}`))
	assert.IsType(t, Ignored{}, parse(t, `{"event":"shape_create","page_id":"p1"}`))
	assert.IsType(t, Unknown{}, parse(t, `{"event":"shape_create","page_id":"p1","data":"x"}`))
}

func TestParseSyncPageShapes(t *testing.T) {
	ev := parse(t, `{"event":"sync_page_shapes","page_id":"p1","shapes":[{"id":2,"c":3},{"kind":"text"}]}`)
	s, ok := ev.(SyncPageShapes)
	require.True(t, ok)
	assert.Equal(t, "p1", s.PageID)
	require.Len(t, s.Records, 2)
	assert.True(t, s.Records[0].HasID)
	assert.False(t, s.Records[1].HasID)

	ev = parse(t, `{"event":"sync_page_shapes","page_id":"p1","shapes":[]}`)
	assert.Empty(t, ev.(SyncPageShapes).Records)

	assert.IsType(t, Ignored{}, parse(t, `{"event":"sync_page_shapes","page_id":"p1"}`))
	assert.IsType(t, Ignored{}, parse(t, `{"event":"sync_page_shapes","shapes":[]}`))
	assert.IsType(t, Unknown{}, parse(t, `{"event":"sync_page_shapes","page_id":"p1","shapes":[1]}`))
	assert.IsType(t, Unknown{}, parse(t, `{"event":"sync_page_shapes","page_id":"p1","shapes":{}}`))
}

func TestParseUnknown(t *testing.T) {
	for _, in := range []string{`{"event":"dance"}`, `{"no_event":1}`, `[1,2]`, `42`, `"hello"`, `null`} {
		ev := parse(t, in)
		u, ok := ev.(Unknown)
		require.True(t, ok, in)
		assert.JSONEq(t, in, string(u.Raw))
	}
}

func TestOutboundShapes(t *testing.T) {
	b, err := json.Marshal(NewShapeCreatedAck(nil, map[string]any{"id": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"shape_created_ack","temp_id":null,"data":{"id":1}}`, string(b))

	b, err = json.Marshal(NewPageStateSynced("p1", []map[string]any{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"page_state_synced","page_id":"p1","shapes":[]}`, string(b))

	b, err = json.Marshal(NewEcho(json.RawMessage(`{"event":"dance"}`)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"echo","data":{"event":"dance"}}`, string(b))
}
