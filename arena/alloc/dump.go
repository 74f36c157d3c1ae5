package alloc

import (
	"fmt"
	"io"
)

// FreeNode is one tree entry surfaced by WalkFree. Duplicates counts the
// chain members waiting behind the node, not the node itself.
type FreeNode struct {
	Off        uint64
	Size       uint64
	Red        bool
	Duplicates int
	Depth      int
}

// WalkFree visits every tree node in right-to-left pre-order, the order
// a sideways tree rendering prints top to bottom. Chain members are
// folded into their head's Duplicates count.
func (t *Tree) WalkFree(visit func(FreeNode)) {
	t.walkFree(t.root, 0, visit)
}

func (t *Tree) walkFree(node uint64, depth int, visit func(FreeNode)) {
	if node == t.nul {
		return
	}
	visit(FreeNode{
		Off:        node,
		Size:       t.blockSize(node),
		Red:        t.isRed(node),
		Duplicates: t.chainLen(node),
		Depth:      depth,
	})
	t.walkFree(t.link(node, right), depth+1, visit)
	t.walkFree(t.link(node, left), depth+1, visit)
}

func (t *Tree) chainLen(node uint64) int {
	n := 0
	for c := t.chain(node); c != t.nul; c = t.link(c, next) {
		n++
	}
	return n
}

// DumpFreeNodes writes the free tree as a sideways box-drawing diagram,
// right subtree above the left so larger sizes read first.
func (t *Tree) DumpFreeNodes(w io.Writer, style Style) {
	if t.root == t.nul {
		fmt.Fprintln(w, "(no free blocks)")
		return
	}
	t.dumpNode(w, t.root, "", "", style)
}

func (t *Tree) dumpNode(w io.Writer, node uint64, prefix, branch string, style Style) {
	fmt.Fprintf(w, "%s%s%s\n", prefix, branch, t.describe(node, style))
	childPrefix := prefix
	switch branch {
	case "├──":
		childPrefix += "│   "
	case "└──":
		childPrefix += "    "
	}
	r := t.link(node, right)
	l := t.link(node, left)
	switch {
	case r != t.nul && l != t.nul:
		t.dumpNode(w, r, childPrefix, "├──", style)
		t.dumpNode(w, l, childPrefix, "└──", style)
	case r != t.nul:
		t.dumpNode(w, r, childPrefix, "└──", style)
	case l != t.nul:
		t.dumpNode(w, l, childPrefix, "└──", style)
	}
}

func (t *Tree) describe(node uint64, style Style) string {
	color := "B"
	if t.isRed(node) {
		color = "R"
	}
	dups := t.chainLen(node)
	if style == Verbose {
		return fmt.Sprintf("%s:%d @0x%X bh=%d dups=%d", color, t.blockSize(node), node, t.blackHeight(node, 0), dups)
	}
	if dups > 0 {
		return fmt.Sprintf("%s:%d(x%d)", color, t.blockSize(node), dups+1)
	}
	return fmt.Sprintf("%s:%d", color, t.blockSize(node))
}
