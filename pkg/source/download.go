package source

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"animscreen/pkg/proto"
)

type DownloadOption func(d *Downloader)

// WithCache keeps downloads in fs and serves later requests from it.
func WithCache(fs afero.Fs) DownloadOption {
	return func(d *Downloader) {
		d.fs = fs
	}
}

// WithProgress shows a progress bar on stderr while downloading.
func WithProgress(show bool) DownloadOption {
	return func(d *Downloader) {
		d.progress = show
	}
}

func WithClient(cli *resty.Client) DownloadOption {
	return func(d *Downloader) {
		d.cli = cli.SetDoNotParseResponse(true)
	}
}

func NewDownloader(logger *zap.Logger, opts ...DownloadOption) *Downloader {
	d := &Downloader{
		cli: resty.New().SetDoNotParseResponse(true),
		log: logger,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Downloader fetches animated images over HTTP.
type Downloader struct {
	fs       afero.Fs
	cli      *resty.Client
	log      *zap.Logger
	progress bool
}

func (d *Downloader) filename(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", errors.Errorf("no file name in %s", raw)
	}
	return fmt.Sprintf("%s/%s", u.Host, name), nil
}

// Get returns the bytes at url, from the cache if present.
func (d *Downloader) Get(url string) ([]byte, error) {
	log := d.log.With(zap.String("url", url))

	file, err := d.filename(url)
	if err != nil {
		return nil, err
	}

	if d.fs != nil {
		if exists, err := afero.Exists(d.fs, file); err != nil {
			return nil, err
		} else if exists {
			log.Debug("cache hit")
			return afero.ReadFile(d.fs, file)
		}
	}

	resp, err := d.cli.R().Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "download failed")
	}

	defer func() {
		_ = resp.RawBody().Close()
	}()

	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf("download failed: %s", resp.Status())
	}

	var w io.Writer = io.Discard
	if d.progress {
		w = progressbar.DefaultBytes(resp.RawResponse.ContentLength, fmt.Sprintf("Downloading %s", url))
	}

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, w), resp.RawBody()); err != nil {
		return nil, errors.Wrap(err, "download failed")
	}

	if d.fs != nil {
		if err := d.save(file, buf.Bytes()); err != nil {
			log.With(zap.Error(err)).Warn("cache save failed")
		}
	}

	log.With(zap.Int("bytes", buf.Len())).Debug("downloaded")
	return buf.Bytes(), nil
}

func (d *Downloader) save(file string, bs []byte) error {
	dir := path.Dir(file)
	if exists, err := afero.DirExists(d.fs, dir); err != nil {
		return err
	} else if !exists {
		if err := d.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return afero.WriteFile(d.fs, file, bs, 0644)
}

// Fetch downloads and decodes the image at url.
func (d *Downloader) Fetch(url string) (proto.Source, error) {
	bs, err := d.Get(url)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(bs))
}
