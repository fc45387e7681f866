// Package inch35 drives the 3.5" USB serial screen.
package inch35

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"animscreen/pkg/bitmap"
	"animscreen/pkg/proto"
)

const (
	Restart    = 101
	Shutdown   = 108
	Startup    = 109
	SetLight   = 110
	SetRotate  = 121
	SetMirror  = 122
	DrawBitmap = 197
)

const (
	Width  = 320
	Height = 480
)

// Open finds the serial port matching name and talks to the screen on it.
func Open(name string, logger *zap.Logger) (*Inch35, error) {
	port := proto.NewSerial(name)
	if err := port.Open(&proto.Options{
		DTR:         true,
		RTS:         true,
		BaudRate:    115200,
		ReadTimeout: time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("open %s failed: %w", name, err)
	}

	return New(port, logger), nil
}

// New returns a screen that writes its protocol to w.
func New(w io.Writer, logger *zap.Logger) *Inch35 {
	return &Inch35{
		port:   w,
		logger: logger,
		width:  Width,
		height: Height,
	}
}

var _ proto.Display = (*Inch35)(nil)

type Inch35 struct {
	port   io.Writer
	logger *zap.Logger
	width  int
	height int
}

func (i *Inch35) Startup() error {
	return i.sendCMD(Startup)
}

func (i *Inch35) Shutdown() error {
	return i.sendCMD(Shutdown)
}

func (i *Inch35) Restart() error {
	return i.sendCMD(Restart)
}

// Size is the screen size in the current orientation.
func (i *Inch35) Size() image.Point {
	return image.Pt(i.width, i.height)
}

func (i *Inch35) SetLight(light uint8) error {
	return i.sendCMD(SetLight, int(light))
}

func (i *Inch35) SetRotate(landscape bool, invert bool) error {
	ov := 100
	i.width, i.height = Width, Height
	if landscape {
		ov++
		i.width, i.height = Height, Width
	}
	if invert {
		ov++
	}

	var bs bytes.Buffer
	bs.WriteByte(uint8(ov))
	_ = binary.Write(&bs, binary.BigEndian, uint16(i.width))
	_ = binary.Write(&bs, binary.BigEndian, uint16(i.height))

	return i.sendOpt(SetRotate, 16, bs.Bytes())
}

func (i *Inch35) SetMirror(mirror bool) error {
	var b byte
	if mirror {
		b = 1
	}

	return i.sendOpt(SetMirror, 16, []byte{b})
}

func (i *Inch35) DrawBitmap(posX uint16, posY uint16, image image.Image) error {
	rect := image.Bounds().Size()
	imgW := rect.X
	imgH := rect.Y

	if imgW == 0 || imgH == 0 {
		return nil
	}
	if imgW+int(posX) > i.width {
		return errors.New("width overflow")
	} else if imgH+int(posY) > i.height {
		return errors.New("height overflow")
	}

	if err := i.sendCMD(DrawBitmap, int(posX), int(posY), int(posX)+imgW-1, int(posY)+imgH-1); err != nil {
		return err
	}

	return i.sendBytes(bitmap.Encode(image).Pix())
}

// Close closes the port if it can be closed.
func (i *Inch35) Close() error {
	if c, ok := i.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
