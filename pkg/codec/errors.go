package codec

import (
	"github.com/pkg/errors"

	"animscreen/pkg/compositor"
	"animscreen/pkg/uploader"
)

var (
	ErrInvalidCallback = errors.New("Callback must be a function")
	ErrEmptySequence   = errors.New("Could not provide any frame.")
	ErrDisposed        = errors.New("codec disposed")

	ErrAllocation   = compositor.ErrAllocation
	ErrSourceDecode = compositor.ErrSourceDecode
	ErrUpload       = uploader.ErrUpload
)
