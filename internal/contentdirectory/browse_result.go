package contentdirectory

// BrowseResult is one outstanding caller hand-off of a BrowseChildren call —
// spec §3's BrowseResult. It exists so callers have an explicit point to
// release their reference on the underlying Children, the Go counterpart
// of content_dir.c's DestroyResult (automatically run by talloc_free there;
// explicit Close here, since Go has no destructors).
type BrowseResult struct {
	cds      *ContentDirectory
	Children *Children
}

// NewBrowseResult wraps an already-referenced Children returned by
// BrowseChildren into a caller-owned handle.
func (cds *ContentDirectory) NewBrowseResult(children *Children) *BrowseResult {
	return &BrowseResult{cds: cds, Children: children}
}

// Close releases this handle's reference on the underlying Children. Only
// the first call releases; Close clears the handle, so later calls do
// nothing.
func (r *BrowseResult) Close() {
	if r == nil || r.Children == nil {
		return
	}
	r.Children.release()
	r.Children = nil
}
