// Package assets caches decoded placement content and deduplicates
// concurrent fetches against the remote store.
package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// Kind is the broad content category of an asset.
type Kind int

const (
	KindImage Kind = iota
	KindModel
)

// Asset is decoded placement content plus its intrinsic dimensions. An asset
// is exclusively owned by the cache entry that produced it and must be
// released when evicted or replaced.
type Asset struct {
	Kind   Kind
	Width  int
	Height int

	// Payload holds the raw decoded bytes; consumers treat it as an opaque
	// handle and must not retain it past an AssetLoaded event for a newer
	// fetch of the same placement.
	Payload []byte

	released bool
}

// Release drops the payload so the entry no longer pins it. Idempotent.
func (a *Asset) Release() {
	a.Payload = nil
	a.released = true
}

// Released reports whether Release has been called.
func (a *Asset) Released() bool {
	return a.released
}

// glTF binary container magic.
var glbMagic = []byte("glTF")

// Decode sniffs and decodes content bytes into an Asset.
// Undecodable payloads yield domain.ErrInvalidContent; the caller keeps
// whatever asset it already had.
func Decode(data []byte) (*Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidContent)
	}

	if bytes.HasPrefix(data, glbMagic) {
		return &Asset{Kind: KindModel, Payload: data}, nil
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("%w: unrecognized content type", domain.ErrInvalidContent)
	}
	if kind.MIME.Type != "image" {
		return nil, fmt.Errorf("%w: unsupported content type %s", domain.ErrInvalidContent, kind.MIME.Value)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidContent, err)
	}

	return &Asset{
		Kind:    KindImage,
		Width:   cfg.Width,
		Height:  cfg.Height,
		Payload: data,
	}, nil
}
