package folder

import "sort"

// BuildTree nests a flat folder list into trees rooted at folders with a nil
// parent. A folder whose parent id is not in the list is promoted to a root
// instead of being dropped; its id is reported in orphans so callers can
// surface the integrity problem without failing the response. The same goes
// for folders trapped in a parent cycle: one node per cycle is cut loose and
// promoted, so every input folder appears in the result exactly once.
// When maxDepth > 0, children below that depth are stripped: the node at the
// cut remains, its subtree is hidden, not deleted.
func BuildTree(folders []Folder, maxDepth int) (roots []*Node, orphans []string) {
	nodes := make(map[string]*Node, len(folders))
	for i := range folders {
		nodes[folders[i].ID] = &Node{Folder: folders[i]}
	}

	roots = make([]*Node, 0, len(folders))
	for i := range folders {
		n := nodes[folders[i].ID]
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[*n.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		} else {
			roots = append(roots, n)
			orphans = append(orphans, n.ID)
		}
	}

	reachable := make(map[string]bool, len(nodes))
	for _, n := range roots {
		markReachable(n, reachable)
	}
	for i := range folders {
		n := nodes[folders[i].ID]
		if reachable[n.ID] {
			continue
		}
		// parent chain never reaches a root, so this is a cycle; cut the
		// node loose from its parent and promote it
		parent := nodes[*n.ParentID]
		for j, c := range parent.Children {
			if c == n {
				parent.Children = append(parent.Children[:j], parent.Children[j+1:]...)
				break
			}
		}
		n.ParentID = nil
		roots = append(roots, n)
		orphans = append(orphans, n.ID)
		markReachable(n, reachable)
	}

	sortNodes(roots)
	if maxDepth > 0 {
		for _, n := range roots {
			trim(n, 1, maxDepth)
		}
	}
	return roots, orphans
}

func markReachable(n *Node, reachable map[string]bool) {
	reachable[n.ID] = true
	for _, c := range n.Children {
		markReachable(c, reachable)
	}
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].SortIndex < nodes[j].SortIndex
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

func trim(n *Node, depth, maxDepth int) {
	if depth >= maxDepth {
		n.Children = nil
		return
	}
	for _, c := range n.Children {
		trim(c, depth+1, maxDepth)
	}
}

// TreeDepths returns the depth of every folder in the flat list (roots and
// orphans are depth 1). A visited set guards each walk so a corrupt parent
// chain cannot loop.
func TreeDepths(folders []Folder) map[string]int {
	byID := make(map[string]*Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}

	depths := make(map[string]int, len(folders))
	for i := range folders {
		seen := make(map[string]bool)
		depth := 0
		for f := &folders[i]; f != nil && !seen[f.ID]; {
			seen[f.ID] = true
			depth++
			if f.ParentID == nil {
				break
			}
			f = byID[*f.ParentID]
		}
		depths[folders[i].ID] = depth
	}
	return depths
}
