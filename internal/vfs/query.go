// Package vfs implements spec §3's "VFS resolver": the read-only
// filesystem view of one or more ContentDirectory registries, synthesizing
// a root directory of device names plus an optional ".debug" subtree and
// walking each device's container/item tree underneath. Grounded on
// djmount's vfs.c/vfs_p.h: the same three operations (stat, list, open)
// djmount's VFS_GetAttr/VFS_ReadDir/VFS_Open perform, re-expressed as an
// explicit tree walk rather than the original's BROWSE_BEGIN/DIR_BEGIN/
// FILE_BEGIN macro DSL (spec §9 names this rewrite explicitly: "a rewrite
// should express it as either an explicit tree walk or a small matcher
// combinator").
package vfs

// Kind distinguishes a directory entry from a file entry — vfs.c's DT_DIR
// vs DT_REG passed to the filler callback.
type Kind int

const (
	KindDir Kind = iota
	KindFile
)

// Stat is the result of a stat-like query on a path — vfs_p.h's
// vfs_begin_dir/vfs_begin_file filling in a stat buffer (mode, nlink,
// size), minus the fields this filesystem never needs (uid/gid/times are
// synthesized by the FUSE adapter, not here).
type Stat struct {
	Kind Kind
	Size int64
	// NumLinks mirrors djmount's directory link-count convention: 2 (for
	// "." and the implicit parent reference) plus one per subdirectory
	// child, per spec §8's testable invariant
	// "stat(dir).nlink == 2 + number_of_subdirectory_children(dir)". Files
	// always report 1.
	NumLinks uint32
	// Synthetic marks a file whose content the Resolver itself produces
	// (the ".debug" tree) rather than a remote ContentDirectory resource —
	// callers read it via Resolver.ReadDebugFile, not Resolver.Open.
	Synthetic bool
}

// Entry is one name produced by a List call — vfs_p.h's vfs_add_dir_entry.
type Entry struct {
	Name string
	Kind Kind
}
