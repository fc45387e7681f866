package remote

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/rpc"
	"sync"

	"animscreen/pkg/proto"
)

// New connects to a display served by Proxy at addr.
func New(addr string) (*Client, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s failed: %w", addr, err)
	}

	return &Client{rpc: client}, nil
}

var _ proto.Display = (*Client)(nil)

type Client struct {
	rpc *rpc.Client

	mu   sync.Mutex
	size *image.Point
}

func (c *Client) Startup() error {
	return c.rpc.Call("Service.Command", "startup", nil)
}

func (c *Client) Shutdown() error {
	return c.rpc.Call("Service.Command", "shutdown", nil)
}

// Size asks the server once and remembers the answer. It is the zero point
// if the server cannot be reached.
func (c *Client) Size() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size != nil {
		return *c.size
	}

	var resp SizeResponse
	if err := c.rpc.Call("Service.Size", &EmptyResponse{}, &resp); err != nil {
		return image.Point{}
	}
	c.size = &image.Point{X: resp.Width, Y: resp.Height}
	return *c.size
}

func (c *Client) DrawBitmap(posX uint16, posY uint16, image image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image); err != nil {
		return err
	}

	return c.rpc.Call("Service.DrawBitmap", &DrawBitmapRequest{
		PosX:  posX,
		PosY:  posY,
		Image: buf.Bytes(),
	}, nil)
}

func (c *Client) Close() error {
	return c.rpc.Close()
}
