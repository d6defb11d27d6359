package bvh

import (
	"fmt"
	"slices"

	"github.com/latr-engine/latr/asset/scene"
)

type flattenItem struct {
	node   *Node
	parent int
}

// Flatten converts a binary BVH into a list of 4-wide nodes suitable for
// uploading to the GPU.
//
// The tree is visited breadth-first. Node 0 is an entry node whose first slot
// references the root. Every binary branch becomes a wide node whose children
// are the (up to 4) grandchildren reachable by collapsing one binary level;
// leaf children are stored in place as encoded primitive references.
//
// Flatten returns nil for a nil tree and panics if a wide node receives more
// than 4 children.
func Flatten(root *Node) []scene.BvhNode {
	if root == nil {
		return nil
	}

	nodes := []scene.BvhNode{{}}
	filled := []int{0}
	queue := []flattenItem{{node: root, parent: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		slot := filled[item.parent]
		if slot >= scene.BvhWidth {
			panic(fmt.Sprintf("bvh: node %d has more than %d children", item.parent, scene.BvhWidth))
		}
		filled[item.parent]++

		if item.node.IsLeaf() {
			nodes[item.parent].SetChild(slot, item.node.Bounds, scene.EncodeLeaf(item.node.Prim))
			continue
		}

		nodeIndex := len(nodes)
		nodes[item.parent].SetChild(slot, item.node.Bounds, int32(nodeIndex))
		nodes = append(nodes, scene.BvhNode{})
		filled = append(filled, 0)

		for _, child := range [2]*Node{item.node.Left, item.node.Right} {
			if child.IsLeaf() {
				queue = append(queue, flattenItem{node: child, parent: nodeIndex})
				continue
			}
			queue = append(queue,
				flattenItem{node: child.Left, parent: nodeIndex},
				flattenItem{node: child.Right, parent: nodeIndex},
			)
		}
	}

	return slices.Clip(nodes)
}
