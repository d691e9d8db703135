package tree

import (
	"encoding/hex"
	"io"
	"strconv"

	"github.com/zeebo/blake3"
)

// Digest returns the hex encoded BLAKE3 hash of the canonical rendering of
// the tree below n. Trees with the same paths, order, flags and property
// values share a digest regardless of which sources produced them.
func Digest(n *Node) string {
	hasher := blake3.New()
	writeCanonical(hasher, n)
	return hex.EncodeToString(hasher.Sum(nil))
}

// writeCanonical emits length-prefixed fields so no two trees render alike.
func writeCanonical(w io.Writer, n *Node) {
	field(w, "node", n.path)
	if value, declared := n.IgnoreReorderedChildren(); declared {
		field(w, "ignore-reordered", strconv.FormatBool(value))
	}
	for _, p := range n.properties {
		field(w, "property", p.name)
		field(w, "kind", p.kind.String())
		field(w, "type", string(p.valueType))
		field(w, "count", strconv.Itoa(len(p.values)))
		for _, v := range p.values {
			if v.Resource {
				field(w, "resource", v.Text)
			} else {
				field(w, "value", v.Text)
			}
		}
	}
	field(w, "children", strconv.Itoa(len(n.children)))
	for _, child := range n.children {
		writeCanonical(w, child)
	}
}

func field(w io.Writer, tag, value string) {
	_, _ = io.WriteString(w, tag+":"+strconv.Itoa(len(value))+":"+value+"\n")
}
