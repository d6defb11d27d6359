package reader

import (
	"context"

	"github.com/latr-engine/latr/asset"
	"github.com/latr-engine/latr/asset/compiler"
	"github.com/latr-engine/latr/asset/mesh"
	"github.com/latr-engine/latr/asset/scene"
)

type triSceneReader struct{}

func newTriSceneReader() *triSceneReader {
	return &triSceneReader{}
}

// Parse and compile a .tri file into a scene with a single mesh.
func (r *triSceneReader) Read(ctx context.Context, res *asset.Resource) (*scene.Scene, error) {
	tris, err := mesh.ReadTri(res)
	if err != nil {
		return nil, err
	}

	m, err := compiler.BuildMesh(ctx, compiler.RawMesh{Name: res.Name(), Triangles: tris})
	if err != nil {
		return nil, err
	}
	return &scene.Scene{Meshes: []*scene.Mesh{m}}, nil
}
