// Package xmlutil is the generic XML helper layer djmount-go's higher level
// packages are built on: a small DOM-ish tree over encoding/xml, offering
// the operations djmount's xml_util.h declares (get first matching node's
// text value, serialize a node back to a string) without requiring a full
// DOM library. The original djmount used libupnp's IXML (a DOM
// implementation); Go's standard encoding/xml is stream-oriented, so this
// package reconstructs just enough tree structure for DIDL-Lite parsing.
package xmlutil

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// Node is one element of a parsed XML document, retaining its attributes,
// raw inner content (so it can be serialized back out, the Go counterpart
// of djmount "detaching" an IXML_Element and keeping it alive) and its
// parsed child elements.
type Node struct {
	XMLName xml.Name   `xml:""`
	Attrs   []xml.Attr `xml:",any,attr"`
	Content []byte     `xml:",innerxml"`
	Nodes   []Node     `xml:",any"`
}

// Parse decodes an XML document (or fragment, if wrapped by the caller)
// into a Node tree.
func Parse(data []byte) (*Node, error) {
	var n Node
	if err := xml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// LocalName returns the element's tag name without namespace prefix, e.g.
// "title" for both "<title>" and "<dc:title>".
func (n *Node) LocalName() string {
	if n == nil {
		return ""
	}
	return n.XMLName.Local
}

// Attr returns the value of the named attribute (namespace-insensitive on
// the local part), or "" if absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Text returns the element's own text content, stripping any nested start
// tags naively — sufficient for the leaf text nodes (dc:title, upnp:class)
// DIDL-Lite uses, which never carry nested markup.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	s := string(n.Content)
	if strings.ContainsRune(s, '<') {
		// Defensive: a leaf we expected to be plain text actually has
		// child markup; fall back to concatenating child text.
		var buf bytes.Buffer
		for i := range n.Nodes {
			buf.WriteString(n.Nodes[i].Text())
		}
		return buf.String()
	}
	return s
}

// FindFirst performs a depth-first search for the first descendant (not
// including n itself) whose local name matches, the Go counterpart of
// XMLUtil_GetFirstNodeValue's underlying element search.
func (n *Node) FindFirst(localName string) *Node {
	if n == nil {
		return nil
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local == localName {
			return child
		}
	}
	for i := range n.Nodes {
		if found := n.Nodes[i].FindFirst(localName); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every direct child element with the given local name, in
// document order — used to split a DIDL-Lite result into containers and
// items while preserving server order within each group (spec §4.2).
func (n *Node) FindAll(localName string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == localName {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

// GetFirstNodeValue is the direct analogue of djmount's
// XMLUtil_GetFirstNodeValue: find the first descendant named item and
// return its text, or "" if none exists.
func GetFirstNodeValue(n *Node, item string) string {
	found := n.FindFirst(item)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// qualifiedName reconstructs the tag name xml.Name was parsed from. Go's
// decoder has no xmlns declaration to resolve an undeclared prefix like
// "dc" or "upnp" against (DIDL-Lite fragments never declare them locally),
// so it leaves the literal prefix text in Space; re-joining Space:Local
// recovers the original "dc:title" form.
func qualifiedName(xn xml.Name) string {
	if xn.Space != "" {
		return xn.Space + ":" + xn.Local
	}
	return xn.Local
}

// String serializes the node back to an XML string — the counterpart of
// djmount's XMLUtil_GetNodeString, used so a DIDLObject can hand its raw
// DIDL fragment back to a caller (e.g. the REPL's "metadata" command) on demand.
//
// This writes the opening tag and attributes by hand and then Content
// (the raw ",innerxml" bytes) verbatim, rather than calling xml.Marshal on
// the whole Node: Node also carries Nodes (",any", populated on decode so
// FindFirst/FindAll can walk children), and marshaling both fields would
// write every descendant's content twice — once from Content, once
// re-marshaled from Nodes.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	name := qualifiedName(n.XMLName)
	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.WriteString(name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(qualifiedName(a.Name))
		buf.WriteString(`="`)
		xml.EscapeText(&buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
	buf.Write(n.Content)
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
	return buf.String()
}
