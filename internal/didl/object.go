// Package didl implements the DIDL-Lite object model: the typed view of one
// entry (container or item) returned by a ContentDirectory Browse, as
// specified in spec §3 ("DIDLObject") and §4.1. It is grounded on djmount's
// didl_object.c, translated from talloc-owned C structs to a plain Go
// struct that owns its parsed XML subtree.
package didl

import (
	"strconv"
	"strings"

	"github.com/r3mi/djmount-go/internal/errs"
	"github.com/r3mi/djmount-go/internal/xlog"
	"github.com/r3mi/djmount-go/internal/xmlutil"
)

// Object is one parsed DIDL-Lite result entry — spec §3's DIDLObject.
type Object struct {
	ID          string
	IsContainer bool
	Title       string
	Basename    string
	Class       string
	Element     *xmlutil.Node
}

// New parses one <container> or <item> element into an Object, following
// the ordered steps of spec §4.1:
//  1. the element is already detached/owned by the caller (Go has no
//     parent-document ownership to transfer);
//  2. read and validate "id";
//  3. extract and clean "dc:title", falling back to "_id<id>";
//  4. extract and trim "upnp:class";
//  5. log a debug summary.
func New(elem *xmlutil.Node, isContainer bool) (*Object, error) {
	if elem == nil {
		xlog.Errorf(nil, "DIDLObject can't create from a nil XML element")
		return nil, errs.New(errs.InvalidArgument, "didl.New", nil)
	}

	id := elem.Attr("id")
	if id == "" {
		xlog.Errorf(nil, "DIDLObject can't create with empty id, XML = %s", elem.String())
		return nil, errs.New(errs.BadResponse, "didl.New", nil)
	}

	rawTitle := xmlutil.GetFirstNodeValue(elem, "title")
	title := CleanFileName(rawTitle)
	basename := title
	if basename == "" {
		xlog.Warnf(nil, "DIDLObject has no (or empty) <dc:title>, XML = %s", elem.String())
		basename = "_id" + id
	} else if basename == "." {
		basename = "._"
	} else if basename == ".." {
		basename = ".._"
	}

	class := strings.TrimSpace(xmlutil.GetFirstNodeValue(elem, "class"))

	o := &Object{
		ID:          id,
		IsContainer: isContainer,
		Title:       title,
		Basename:    basename,
		Class:       class,
		Element:     elem,
	}

	kind := "item"
	if isContainer {
		kind = "container"
	}
	xlog.Debugf(nil, "new DIDLObject: %s: id=%q title=%q class=%q", kind, o.ID, o.Title, o.Class)

	return o, nil
}

// RawXML serializes the object's owned element subtree back to a string,
// the Go counterpart of djmount's DIDLObject_GetElementString. Callers use
// this to render the raw DIDL fragment on demand (spec §4.1 guarantees).
func (o *Object) RawXML() string {
	if o == nil {
		return ""
	}
	return o.Element.String()
}

// Resource is one <res> element of an item: the actual retrievable content
// location djmount's vfs_p.h FILE_SET_URL hands to FileBuffer_CreateFromURL.
type Resource struct {
	URL  string
	Size int64 // -1 if the server did not advertise a size attribute
}

// Resource returns the object's first <res> element, if any. Containers
// never carry one; an item with none is a metadata-only entry djmount
// still lists but cannot read (content_dir.c falls back to an empty file
// in that case; callers here see ok=false and decide for themselves).
func (o *Object) Resource() (Resource, bool) {
	if o == nil || o.Element == nil {
		return Resource{}, false
	}
	res := o.Element.FindFirst("res")
	if res == nil {
		return Resource{}, false
	}
	url := strings.TrimSpace(res.Text())
	if url == "" {
		return Resource{}, false
	}
	size := int64(-1)
	if raw := res.Attr("size"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			size = n
		}
	}
	return Resource{URL: url, Size: size}, true
}

// CleanFileName removes path separators and control characters from a
// title so it is safe to use as a filesystem entry name — spec §3's
// "cleaned display name" policy. Anything that would confuse a path walk
// (forward slash, NUL and other C0 control characters) is dropped rather
// than substituted, since collapsing them to a placeholder character would
// risk manufacturing collisions between distinct titles.
func CleanFileName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '/' || r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
