package bvh

import (
	"math/rand"
	"testing"

	"github.com/latr-engine/latr/asset/scene"
)

func TestFlattenCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, count := range []int{1, 2, 3, 4, 5, 8, 33, 1000} {
		boxes, centroids, prims := primitives(randomTris(rng, count))
		root := Build(boxes, centroids, prims)
		nodes := Flatten(root)

		if len(nodes) == 0 {
			t.Fatalf("[count %d] expected at least the entry node", count)
		}
		if cap(nodes) != len(nodes) {
			t.Fatalf("[count %d] expected trimmed capacity %d; got %d", count, len(nodes), cap(nodes))
		}
		if nodes[0].ChildCount() != 1 {
			t.Fatalf("[count %d] expected entry node to hold exactly one child; got %d", count, nodes[0].ChildCount())
		}

		seenPrims := make([]int, count)
		referenced := make([]int, len(nodes))
		for nodeIndex := range nodes {
			node := &nodes[nodeIndex]
			for slot := 0; slot < scene.BvhWidth; slot++ {
				bounds, index := node.Child(slot)
				if index == 0 {
					continue
				}
				if prim, isLeaf := scene.DecodeLeaf(index); isLeaf {
					seenPrims[prim]++
					if bounds != boxes[prim] {
						t.Fatalf("[count %d] expected slot bounds %v for primitive %d; got %v", count, boxes[prim], prim, bounds)
					}
					continue
				}
				if int(index) >= len(nodes) || int(index) <= nodeIndex {
					t.Fatalf("[count %d] node %d references invalid node %d", count, nodeIndex, index)
				}
				referenced[index]++

				// The slot box must enclose everything stored in the
				// referenced node.
				child := &nodes[index]
				for childSlot := 0; childSlot < child.ChildCount(); childSlot++ {
					childBounds, _ := child.Child(childSlot)
					if !bounds.Contains(childBounds) {
						t.Fatalf("[count %d] slot bounds %v do not contain %v", count, bounds, childBounds)
					}
				}
			}
		}

		for prim, seen := range seenPrims {
			if seen != 1 {
				t.Fatalf("[count %d] expected primitive %d to be referenced once; got %d", count, prim, seen)
			}
		}
		for nodeIndex := 1; nodeIndex < len(nodes); nodeIndex++ {
			if referenced[nodeIndex] != 1 {
				t.Fatalf("[count %d] expected node %d to be referenced once; got %d", count, nodeIndex, referenced[nodeIndex])
			}
		}
		if referenced[0] != 0 {
			t.Fatalf("[count %d] expected entry node not to be referenced", count)
		}
	}
}

func TestFlattenCollapsesLevels(t *testing.T) {
	// A balanced tree with 4 leafs collapses into a single wide node.
	boxes, _, _ := primitives(randomTris(rand.New(rand.NewSource(5)), 4))
	leaf := func(prim uint32) *Node {
		return &Node{Bounds: boxes[prim], Prim: prim}
	}
	branch := func(left, right *Node) *Node {
		return &Node{Left: left, Right: right}
	}

	root := branch(branch(leaf(0), leaf(1)), branch(leaf(2), leaf(3)))
	nodes := Flatten(root)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes; got %d", len(nodes))
	}
	if exp := [4]int32{-1, -2, -3, -4}; nodes[1].Indices != exp {
		t.Fatalf("expected wide node indices %v; got %v", exp, nodes[1].Indices)
	}

	// An unbalanced tree keeps the deeper branch as a separate node.
	root = branch(leaf(0), branch(leaf(1), branch(leaf(2), leaf(3))))
	nodes = Flatten(root)
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes; got %d", len(nodes))
	}
	if exp := [4]int32{-1, -2, 2, 0}; nodes[1].Indices != exp {
		t.Fatalf("expected wide node indices %v; got %v", exp, nodes[1].Indices)
	}
	if exp := [4]int32{-3, -4, 0, 0}; nodes[2].Indices != exp {
		t.Fatalf("expected wide node indices %v; got %v", exp, nodes[2].Indices)
	}
}
