package source

import (
	"bufio"
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"animscreen/pkg/proto"
)

// IsGIF reports whether r starts with a GIF signature. r is not advanced.
func IsGIF(r *bufio.Reader) bool {
	return hasMagic("GIF8?a", r)
}

func hasMagic(magic string, r *bufio.Reader) bool {
	b, err := r.Peek(len(magic))
	if err != nil || len(b) != len(magic) {
		return false
	}
	for i, c := range b {
		if magic[i] != c && magic[i] != '?' {
			return false
		}
	}
	return true
}

// Decode returns a GIF source for GIF data and a Still for any other
// registered image format.
func Decode(r io.Reader) (proto.Source, error) {
	br := bufio.NewReader(r)
	if IsGIF(br) {
		return DecodeGIF(br)
	}

	img, format, err := image.Decode(br)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	if format == "" {
		return nil, errors.New("unknown image format")
	}
	return Still(img), nil
}

// Open decodes the image stored at path in fs.
func Open(fs afero.Fs, path string) (proto.Source, error) {
	bs, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Decode(bytes.NewReader(bs))
}
