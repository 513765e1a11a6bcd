// Package codec defines the wire framing used between replicas and
// coordinators: a one-byte message-type tag followed by a
// gob-encoded body. It mirrors fastrpc.Serializable's shape
// (Marshal/Unmarshal/New) so the transport layer can register
// message types generically without a type switch on every send.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
)

// Serializable is implemented by every message type that crosses the
// wire. New returns a zero value of the same concrete type, used by the
// receiver to allocate a destination for Unmarshal.
type Serializable interface {
	Marshal(w io.Writer) error
	Unmarshal(r io.Reader) error
	New() Serializable
}

// Code is the one-byte message-type tag. 0 is reserved (genericsmr
// panics on a zero rpc code; this keeps that convention).
type Code uint8

// Table maps registered codes to a prototype instance used to allocate
// fresh values on receipt, analogous to genericsmr.RPCPair.
type Table struct {
	next     Code
	prototyp map[Code]Serializable
}

func NewTable() *Table {
	return &Table{next: 1, prototyp: make(map[Code]Serializable)}
}

// Register assigns the next free code to msg and returns it.
func (t *Table) Register(msg Serializable) Code {
	code := t.next
	t.next++
	t.prototyp[code] = msg
	return code
}

func (t *Table) New(code Code) (Serializable, error) {
	proto, ok := t.prototyp[code]
	if !ok {
		return nil, fmt.Errorf("codec: unregistered message code %d", code)
	}
	return proto.New(), nil
}

// WriteFrame writes the type tag followed by the gob-encoded body.
func WriteFrame(w io.Writer, code Code, msg Serializable) error {
	if code == 0 {
		panic("codec: refusing to send with reserved code 0")
	}
	if _, err := w.Write([]byte{byte(code)}); err != nil {
		return err
	}
	return msg.Marshal(w)
}

// ReadFrame reads the type tag and decodes the body using t to allocate
// the destination value.
func ReadFrame(r io.Reader, t *Table) (Code, Serializable, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, nil, err
	}
	code := Code(b[0])
	msg, err := t.New(code)
	if err != nil {
		return code, nil, err
	}
	if err := msg.Unmarshal(r); err != nil {
		return code, nil, err
	}
	return code, msg, nil
}

// GobMarshal/GobUnmarshal are helpers message types embed to satisfy
// Serializable without hand-rolling binary layouts the way
// fastrpc.Serializable implementations hand-roll their own TIBSL
// framing; gob is the idiomatic stdlib substitute here since message
// shapes in this port are plain structs, not fixed-width
// micro-optimized frames.
func GobMarshal(w io.Writer, v interface{}) error {
	return gob.NewEncoder(w).Encode(v)
}

func GobUnmarshal(r io.Reader, v interface{}) error {
	return gob.NewDecoder(r).Decode(v)
}

// Bytes round-trips v through gob into a fresh buffer; used by tests.
func Bytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
