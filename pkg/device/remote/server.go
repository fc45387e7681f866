package remote

import (
	"bytes"
	"context"
	"image/png"
	"net"
	"net/http"
	"net/rpc"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"animscreen/pkg/proto"
)

// Handler serves dev over net/rpc on the default RPC path.
func Handler(dev proto.Display, logger *zap.Logger) (http.Handler, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Service", &Service{dev: dev, log: logger}); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, srv)
	return mux, nil
}

// Proxy exposes dev on srv for the lifetime of the application.
func Proxy(dev proto.Display, srv *http.Server, lifecycle fx.Lifecycle, logger *zap.Logger) error {
	h, err := Handler(dev, logger)
	if err != nil {
		return err
	}
	srv.Handler = h

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.With(zap.Stringer("addr", ln.Addr())).Info("serving display")

			go func() {
				if err := srv.Serve(ln); err != http.ErrServerClosed {
					logger.With(zap.Error(err)).Error("serve failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return nil
}

type Service struct {
	dev proto.Display
	log *zap.Logger
}

func (s *Service) Command(name string, _ *EmptyResponse) error {
	s.log.With(zap.String("name", name)).Debug("command")

	switch name {
	case "startup":
		return s.dev.Startup()
	case "shutdown":
		return s.dev.Shutdown()
	}

	return errors.New("unknown command")
}

func (s *Service) Size(_ *EmptyResponse, resp *SizeResponse) error {
	size := s.dev.Size()
	resp.Width, resp.Height = size.X, size.Y
	return nil
}

func (s *Service) DrawBitmap(req *DrawBitmapRequest, _ *EmptyResponse) error {
	img, err := png.Decode(bytes.NewBuffer(req.Image))
	if err != nil {
		return err
	}

	return s.dev.DrawBitmap(req.PosX, req.PosY, img)
}
