package utils

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

var ErrShortBuffer = errors.New("read past end of buffer")

// BufStack reads fields sequentially from a byte buffer in a selected byte order.
// The first read past the end of the buffer is remembered in Err, later reads
// return zero values.
type BufStack struct {
	buf   []byte
	pos   int
	kind  string
	name  string
	order binary.ByteOrder
	err   error
}

func NewBufStack(kind string, b []byte) *BufStack {
	return &BufStack{
		buf:   b,
		kind:  kind,
		order: binary.LittleEndian,
	}
}

func (bs *BufStack) SetName(name string) *BufStack {
	bs.name = name
	return bs
}

func (bs *BufStack) SetByteOrder(o binary.ByteOrder) *BufStack {
	bs.order = o
	return bs
}

func (bs *BufStack) ByteOrder() binary.ByteOrder { return bs.order }
func (bs *BufStack) Name() string                { return bs.name }
func (bs *BufStack) Kind() string                { return bs.kind }
func (bs *BufStack) Size() int                   { return len(bs.buf) }
func (bs *BufStack) Pos() int                    { return bs.pos }
func (bs *BufStack) Err() error                  { return bs.err }

func (bs *BufStack) Remaining() int {
	return len(bs.buf) - bs.pos
}

func (bs *BufStack) String() string {
	return fmt.Sprintf("buf<%v>(%v)[p:0x%x,s:0x%x]", bs.kind, bs.name, bs.pos, len(bs.buf))
}

// Need checks that amount bytes are available without consuming them.
func (bs *BufStack) Need(amount int) bool {
	if bs.err != nil {
		return false
	}
	if amount < 0 || amount > bs.Remaining() {
		bs.err = errors.Wrapf(ErrShortBuffer, "%v: need 0x%x bytes", bs, amount)
		return false
	}
	return true
}

func (bs *BufStack) Read(amount int) []byte {
	if !bs.Need(amount) {
		return nil
	}
	oldPos := bs.pos
	bs.pos += amount
	return bs.buf[oldPos:bs.pos]
}

func (bs *BufStack) Skip(amount int) {
	bs.Read(amount)
}

func (bs *BufStack) ReadU32() uint32 {
	if b := bs.Read(4); b != nil {
		return bs.order.Uint32(b)
	}
	return 0
}

func (bs *BufStack) ReadU16() uint16 {
	if b := bs.Read(2); b != nil {
		return bs.order.Uint16(b)
	}
	return 0
}

func (bs *BufStack) ReadI16() int16 {
	return int16(bs.ReadU16())
}

func (bs *BufStack) ReadF() float32 {
	return math.Float32frombits(bs.ReadU32())
}

func (bs *BufStack) ReadU16Array(out []uint16) {
	for i := range out {
		out[i] = bs.ReadU16()
	}
}

func (bs *BufStack) ReadI16Array(out []int16) {
	for i := range out {
		out[i] = bs.ReadI16()
	}
}

func (bs *BufStack) ReadFArray(out []float32) {
	for i := range out {
		out[i] = bs.ReadF()
	}
}
