package main

import (
	"net/http"

	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"animscreen/pkg/device/remote"
	"animscreen/pkg/device/virtual"
	"animscreen/pkg/proto"
)

var listen = flag.String("listen", ":9123", "listen addr")
var width = flag.Int("width", virtual.DefaultWidth, "display width")
var height = flag.Int("height", virtual.DefaultHeight, "display height")
var debug = flag.Bool("debug", false, "set debug")

func main() {
	flag.Parse()

	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(
			func() (*zap.Logger, error) {
				if *debug {
					return zap.NewDevelopment()
				}
				return zap.NewProduction()
			},
			func(logger *zap.Logger) (proto.Display, *http.Server) {
				return virtual.New(logger, virtual.WithSize(*width, *height)),
					&http.Server{Addr: *listen}
			},
		),
		fx.Invoke(
			remote.Proxy,
		),
	).Run()
}
