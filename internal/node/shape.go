package node

import (
	"fmt"
	"strings"
)

// Shape renders the materialized tree reachable from n on one line:
//
//	call(root F<0-8>(base S<2-4>(...)))
//
// A base whose children are not resolved yet is marked with "?". Wrappers are
// rendered as wrap(...) around their delegate.
func Shape(n Node) string {
	var sb strings.Builder
	writeShape(&sb, n)
	return sb.String()
}

func writeShape(sb *strings.Builder, n Node) {
	switch v := n.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Call:
		sb.WriteString("call(")
		writeShape(sb, v.target.root)
		sb.WriteString(")")
	case *Root:
		fmt.Fprintf(sb, "root %s<%d-%d>", v.desc.Tags, v.desc.Start, v.desc.End)
		writeChildren(sb, v.Children())
	case *Base:
		fmt.Fprintf(sb, "base %s<%d-%d>", v.desc.Tags, v.desc.Start, v.desc.End)
		if !v.ChildrenResolved() {
			if len(v.desc.Children()) > 0 {
				sb.WriteString("?")
			}
			return
		}
		writeChildren(sb, v.Children())
	case *Wrapper:
		sb.WriteString("wrap(")
		writeShape(sb, v.delegate)
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "%T", n)
	}
}

func writeChildren(sb *strings.Builder, children []Node) {
	if len(children) == 0 {
		return
	}
	sb.WriteString("(")
	for i, ch := range children {
		if i > 0 {
			sb.WriteString(" ")
		}
		writeShape(sb, ch)
	}
	sb.WriteString(")")
}

// Walk visits n and every node reachable from it in pre-order, descending
// through call proxies into their roots and through wrappers into their
// delegates. Unresolved child lists are not forced.
func Walk(n Node, visit func(Node)) {
	visit(n)
	switch v := n.(type) {
	case *Call:
		Walk(v.target.root, visit)
	case *Wrapper:
		Walk(v.delegate, visit)
	case Parent:
		for _, ch := range v.Children() {
			if ch != nil {
				Walk(ch, visit)
			}
		}
	}
}
