package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMsg struct {
	Value string
}

func (m *fakeMsg) Marshal(w io.Writer) error   { return GobMarshal(w, m) }
func (m *fakeMsg) Unmarshal(r io.Reader) error { return GobUnmarshal(r, m) }
func (m *fakeMsg) New() Serializable           { return &fakeMsg{} }

func TestTableRegisterAndNew(t *testing.T) {
	tbl := NewTable()
	code := tbl.Register(&fakeMsg{})
	assert.NotZero(t, code)

	fresh, err := tbl.New(code)
	require.NoError(t, err)
	assert.IsType(t, &fakeMsg{}, fresh)
}

func TestTableNewUnregisteredCode(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.New(Code(200))
	assert.Error(t, err)
}

func TestWriteFrameRejectsReservedCode(t *testing.T) {
	var buf bytes.Buffer
	assert.Panics(t, func() { WriteFrame(&buf, 0, &fakeMsg{}) })
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	tbl := NewTable()
	code := tbl.Register(&fakeMsg{})

	var buf bytes.Buffer
	msg := &fakeMsg{Value: "hello"}
	require.NoError(t, WriteFrame(&buf, code, msg))

	gotCode, gotMsg, err := ReadFrame(&buf, tbl)
	require.NoError(t, err)
	assert.Equal(t, code, gotCode)
	assert.Equal(t, msg, gotMsg)
}

func TestBytesRoundTrip(t *testing.T) {
	data, err := Bytes(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
