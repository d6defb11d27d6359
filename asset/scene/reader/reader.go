package reader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/latr-engine/latr/asset"
	"github.com/latr-engine/latr/asset/scene"
	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned for files that no reader can handle.
var ErrUnsupportedFormat = errors.New("reader: unsupported file format")

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(context.Context, *asset.Resource) (*scene.Scene, error)
}

// Read scene from file. Compiled archives (.zip) are loaded as is while
// triangle soups (.tri) are compiled into a single mesh scene.
func ReadScene(ctx context.Context, filename string) (*scene.Scene, error) {
	// Select reader based on file extension
	var reader Reader
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		reader = newZipSceneReader()
	case ".tri":
		reader = newTriSceneReader()
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", filename)
	}

	res, err := asset.NewResource(ctx, filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return reader.Read(ctx, res)
}
