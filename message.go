package wsession

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type FrameType byte

const (
	TextFrame   FrameType = 1
	BinaryFrame FrameType = 2
	CloseFrame  FrameType = 8
	PingFrame   FrameType = 9
	PongFrame   FrameType = 10
)

func (t FrameType) Is(other FrameType) bool {
	return t == other
}

func (t FrameType) IsText() bool {
	return t.Is(TextFrame)
}

func (t FrameType) IsBinary() bool {
	return t.Is(BinaryFrame)
}

func (t FrameType) IsClose() bool {
	return t.Is(CloseFrame)
}

func (t FrameType) IsControl() bool {
	return t.Is(PingFrame) || t.Is(PongFrame)
}

// Frame is a single unit received from or sent to the transport.
type Frame struct {
	FrameType FrameType
	FrameData []byte
}

func (f Frame) Type() FrameType {
	return f.FrameType
}

func (f Frame) Data() []byte {
	return f.FrameData
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{type=%d,data=%s}",
		f.FrameType, f.FrameData)
}

func NewFrame(ft FrameType, data []byte) Frame {
	return Frame{FrameType: ft, FrameData: data}
}

func NewTextFrame(data []byte) Frame {
	return NewFrame(TextFrame, data)
}

func NewBinaryFrame(data []byte) Frame {
	return NewFrame(BinaryFrame, data)
}

func NewPingFrame(data []byte) Frame {
	return NewFrame(PingFrame, data)
}

func NewPongFrame(data []byte) Frame {
	return NewFrame(PongFrame, data)
}

func NewCloseFrame(data []byte) Frame {
	return NewFrame(CloseFrame, data)
}

// Message is the payload delivered to subscribers. Binary frames pass
// through untouched; text frames are validated against the fixed wire
// encoding (utf-8) before delivery.
type Message []byte

// decodeFrame turns an inbound data frame into a deliverable Message.
// Control and close frames never reach this point; any other unknown
// frame type means the transport produced something we have not
// modelled, which is a contract violation and fails loudly.
func decodeFrame(f Frame) (Message, error) {
	switch f.Type() {
	case BinaryFrame:
		return Message(f.Data()), nil
	case TextFrame:
		if !utf8.Valid(f.Data()) {
			return nil, errors.Wrapf(ErrTextDecoding, "%q", f.Data())
		}
		return Message(f.Data()), nil
	default:
		panic(fmt.Sprintf("wsession: unhandled frame type %d", f.Type()))
	}
}
