package scene

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/latr-engine/latr/types"
)

func TestGpuLayout(t *testing.T) {
	if exp, got := uintptr(112), unsafe.Sizeof(BvhNode{}); got != exp {
		t.Fatalf("expected BvhNode to occupy %d bytes; got %d", exp, got)
	}
	if exp, got := uintptr(32), unsafe.Sizeof(TriangleData{}); got != exp {
		t.Fatalf("expected TriangleData to occupy %d bytes; got %d", exp, got)
	}
	if exp, got := uintptr(12), unsafe.Sizeof(Vertex{}); got != exp {
		t.Fatalf("expected Vertex to occupy %d bytes; got %d", exp, got)
	}
}

func TestLeafEncoding(t *testing.T) {
	for _, prim := range []uint32{0, 1, 41, 1 << 20} {
		index := EncodeLeaf(prim)
		if index >= 0 {
			t.Fatalf("expected leaf %d to encode as a negative index; got %d", prim, index)
		}
		decoded, isLeaf := DecodeLeaf(index)
		if !isLeaf || decoded != prim {
			t.Fatalf("expected index %d to decode to leaf %d; got %d (leaf: %t)", index, prim, decoded, isLeaf)
		}
	}

	if EncodeLeaf(0) != -1 {
		t.Fatalf("expected primitive 0 to encode as -1; got %d", EncodeLeaf(0))
	}

	if _, isLeaf := DecodeLeaf(3); isLeaf {
		t.Fatal("expected positive index not to be decoded as a leaf")
	}
}

func TestChildSlots(t *testing.T) {
	var node BvhNode
	if node.ChildCount() != 0 {
		t.Fatalf("expected blank node to have no children; got %d", node.ChildCount())
	}

	box := types.AABBFromPoints(types.XYZ(-1, -2, -3), types.XYZ(1, 2, 3))
	node.SetChild(2, box, EncodeLeaf(7))
	node.SetChild(0, box, 5)

	if node.ChildCount() != 2 {
		t.Fatalf("expected node to have 2 children; got %d", node.ChildCount())
	}

	gotBox, gotIndex := node.Child(2)
	if gotBox != box || gotIndex != -8 {
		t.Fatalf("expected slot 2 to hold %v/-8; got %v/%d", box, gotBox, gotIndex)
	}
	if node.MaxY[0] != 2 || node.MinZ[0] != -3 {
		t.Fatalf("expected bounds to be stored per axis; got %+v", node)
	}
}

func TestStats(t *testing.T) {
	sc := &Scene{
		Meshes: []*Mesh{
			{
				Name:      "cube",
				Vertices:  make([]Vertex, 8),
				Triangles: make([]TriangleData, 12),
				Bvh:       make([]BvhNode, 5),
			},
			{
				Name: "empty",
			},
		},
	}

	out := sc.Stats()
	for _, exp := range []string{"cube", "empty", "Total (2)", "BVH nodes"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("expected stats table to contain %q; got:\n%s", exp, out)
		}
	}
}
