package fatx

import (
	"path"
	"strings"
)

// Dirname and Basename follow POSIX dirname(3)/basename(3) semantics
// exactly as spec.md section 4.6 specifies (trailing-slash stripping,
// all-slashes -> "/", empty -> "."). The original reference
// implementation's fatx_dirname/fatx_basename (original_source/libfatx/
// fatx_misc.c) delegate to equivalent POSIX helpers. Go's path.Base already
// implements the identical table; path.Dir does not strip trailing slashes
// first ("/a/b/" would give "/a/b"), so Dirname strips them before calling
// it.
func Dirname(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" && p != "" {
		return "/"
	}
	return path.Dir(trimmed)
}

func Basename(p string) string {
	return path.Base(p)
}

// splitComponents breaks a logical path into its slash-separated
// components, tolerating (and ignoring) a trailing slash, per spec.md
// section 4.6.
func splitComponents(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Resolve walks a logical path component-wise from the root cluster,
// returning a cursor positioned at the matching entry, per spec.md section
// 4.6. A lookup of "/" returns a cursor at (root_cluster, 0) with a nil
// attribute, since the root directory has no parent entry of its own.
func Resolve(dir *Directory, rootCluster ClusterID, logicalPath string) (DirCursor, *Attr, error) {
	components := splitComponents(logicalPath)
	if len(components) == 0 {
		return DirCursor{Cluster: rootCluster, Entry: 0}, nil, nil
	}

	currentDir := rootCluster
	var cur DirCursor
	var attr *Attr
	var err error

	for i, component := range components {
		cur, attr, err = dir.Lookup(currentDir, component)
		if err != nil {
			return DirCursor{}, nil, err
		}

		isLast := i == len(components)-1
		if !isLast {
			if !attr.IsDirectory() {
				return DirCursor{}, nil, errNotADirectory("%q is not a directory", component)
			}
			currentDir = attr.FirstCluster
		}
	}

	return cur, attr, nil
}
