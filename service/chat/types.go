package chat

import "context"

// Handler 处理一种入站帧。
type Handler interface {
	Type() FrameType
	Handle(ctx context.Context, c *Client, f *Frame) error
}
