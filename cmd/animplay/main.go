package main

import (
	"context"
	"image"
	"image/color"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/samber/lo"
	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"animscreen/pkg/codec"
	"animscreen/pkg/device/inch35"
	"animscreen/pkg/device/remote"
	"animscreen/pkg/device/virtual"
	"animscreen/pkg/mixer"
	"animscreen/pkg/player"
	"animscreen/pkg/proto"
	"animscreen/pkg/runner"
	"animscreen/pkg/source"
	"animscreen/pkg/uploader"
)

var display = flag.String("display", "virtual", "\"virtual\", a remote display addr or a serial port name")
var width = flag.Int("width", virtual.DefaultWidth, "virtual display width")
var height = flag.Int("height", virtual.DefaultHeight, "virtual display height")
var plays = flag.Int("plays", 0, "number of plays, 0 uses the image's count, -1 loops forever")
var minDelay = flag.Duration("min-delay", 20*time.Millisecond, "shortest frame duration")
var maxBytes = flag.String("max-bytes", "512MB", "largest frame buffer")
var fit = flag.String("fit", "fill", "fill, contain or none")
var transition = flag.String("transition", "", "first frame of each play: \"block\" for random tiles, \"tiles\" for ordered tiles")
var tileSize = flag.Int("tile-size", 32, "tile size of the \"tiles\" transition")
var light = flag.Uint8("light", 100, "serial screen backlight")
var landscape = flag.Bool("landscape", false, "serial screen landscape")
var gpu = flag.Bool("gpu", true, "allow texture uploads")
var native = flag.Bool("native", false, "upload frames in the display's native layout")
var cacheDir = flag.String("cache", "", "download cache dir")
var progress = flag.Bool("progress", true, "show download progress")
var debug = flag.Bool("debug", false, "set debug")

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: animplay [flags] <file or url>")
	}

	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(
			newLogger,
			newDisplay,
			newSource,
			newRunners,
			newUploader,
			newCodec,
			newDrawer,
			newPlayer,
		),
		fx.Invoke(run),
	).Run()
}

func newLogger() (*zap.Logger, error) {
	return lo.Ternary(*debug, zap.NewDevelopment, zap.NewProduction)()
}

type displays struct {
	fx.Out

	Display proto.Display
	Native  *virtual.Display
}

func newDisplay(logger *zap.Logger, lifecycle fx.Lifecycle) (displays, error) {
	switch {
	case *display == "virtual":
		dev := virtual.New(logger.With(zap.String("display", "virtual")),
			virtual.WithSize(*width, *height),
			virtual.WithNative(*native),
		)
		return displays{Display: dev, Native: dev}, nil
	case strings.Contains(*display, ":"):
		dev, err := remote.New(*display)
		if err != nil {
			return displays{}, err
		}
		lifecycle.Append(fx.Hook{OnStop: func(context.Context) error { return dev.Close() }})
		return displays{Display: dev}, nil
	}

	dev, err := inch35.Open(*display, logger.With(zap.String("display", *display)))
	if err != nil {
		return displays{}, err
	}
	lifecycle.Append(fx.Hook{OnStop: func(context.Context) error { return dev.Close() }})

	if err := dev.SetLight(*light); err != nil {
		return displays{}, err
	}
	if err := dev.SetRotate(*landscape, false); err != nil {
		return displays{}, err
	}
	return displays{Display: dev}, nil
}

func newSource(logger *zap.Logger) (proto.Source, error) {
	arg := flag.Arg(0)

	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		opts := []source.DownloadOption{source.WithProgress(*progress)}
		if *cacheDir != "" {
			fs, err := source.DirFs(*cacheDir)
			if err != nil {
				return nil, err
			}
			opts = append(opts, source.WithCache(fs))
		}
		return source.NewDownloader(logger, opts...).Fetch(arg)
	}

	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, err
	}
	fs, err := source.DirFs(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	return source.Open(fs, filepath.Base(abs))
}

func newRunners(logger *zap.Logger, lifecycle fx.Lifecycle) codec.Runners {
	decode := runner.NewLoop("decode", runner.WithLogger(logger))
	present := runner.NewLoop("present", runner.WithLogger(logger))

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := decode.Start(context.Background()); err != nil {
				return err
			}
			return present.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			decode.Stop()
			present.Stop()
			return nil
		},
	})

	return codec.Runners{Decode: decode, Present: present}
}

type uploaderParams struct {
	fx.In

	Logger *zap.Logger
	Native *virtual.Display `optional:"true"`
}

func newUploader(p uploaderParams) *uploader.Uploader {
	opts := []uploader.Option{
		uploader.WithLogger(p.Logger),
		uploader.WithGPUSwitch(uploader.NewSwitch(!*gpu)),
		uploader.WithResourceContext(uploader.NewSoftwareContext()),
	}
	if p.Native != nil {
		opts = append(opts, uploader.WithBackend(p.Native))
	}
	return uploader.New(opts...)
}

func newCodec(src proto.Source, runners codec.Runners, u *uploader.Uploader, logger *zap.Logger) (*codec.Codec, error) {
	max, err := bytesize.Parse(*maxBytes)
	if err != nil {
		return nil, err
	}

	info := src.Info()
	logger.With(
		zap.Int("frames", src.FrameCount()),
		zap.Int("plays", src.PlayCount()),
		zap.Stringer("size", image.Pt(info.Width, info.Height)),
	).Info("source loaded")

	return codec.New(src, runners,
		codec.WithLogger(logger),
		codec.WithUploader(u),
		codec.WithMaxBytes(int64(max)),
	)
}

// background is implemented by sources that declare a backdrop colour.
type background interface {
	Background() (color.Color, bool)
}

func newDrawer(dev proto.Display, src proto.Source, logger *zap.Logger) *mixer.Drawer {
	opts := []mixer.Option{mixer.WithLogger(logger)}

	switch *fit {
	case "contain":
		opts = append(opts, mixer.WithFit(mixer.FitContain))
	case "none":
		opts = append(opts, mixer.WithFit(mixer.FitNone))
	}

	if bg, ok := src.(background); ok {
		if c, ok := bg.Background(); ok {
			opts = append(opts, mixer.WithBackground(c))
		}
	}

	switch *transition {
	case "block":
		opts = append(opts, mixer.WithEffect(mixer.EffectBlock()))
	case "tiles":
		opts = append(opts, mixer.WithEffect(mixer.EffectTiles(*tileSize)))
	}

	return mixer.NewDrawer(dev, opts...)
}

func newPlayer(c *codec.Codec, d *mixer.Drawer, logger *zap.Logger) *player.Player {
	return player.New(c, d,
		player.WithLogger(logger),
		player.WithMinDelay(*minDelay),
		player.WithPlays(*plays),
	)
}

func run(p *player.Player, c *codec.Codec, dev proto.Display, logger *zap.Logger, lifecycle fx.Lifecycle, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := dev.Startup(); err != nil {
				return err
			}

			go func() {
				defer close(done)
				if err := p.Run(ctx); err != nil && ctx.Err() == nil {
					logger.With(zap.Error(err)).Error("play failed")
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			c.Dispose()
			return dev.Shutdown()
		},
	})
}
