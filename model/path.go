package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one step of an absolute node path.
type Segment struct {
	Name  string
	Index int
}

// Key renders the segment as name[index].
func (s Segment) Key() string {
	return s.Name + "[" + strconv.Itoa(s.Index) + "]"
}

// String renders the segment omitting the default index.
func (s Segment) String() string {
	if s.Index <= 1 {
		return s.Name
	}
	return s.Key()
}

// segmentRegex matches "name" or "name[index]".
var segmentRegex = regexp.MustCompile(`^([^/\[\]]+)(?:\[(\d+)\])?$`)

// ParseSegment parses a single path segment. A missing index means 1.
func ParseSegment(raw string) (Segment, error) {
	matches := segmentRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return Segment{}, fmt.Errorf("invalid path segment %q", raw)
	}
	seg := Segment{Name: matches[1], Index: 1}
	if matches[2] != "" {
		index, err := strconv.Atoi(matches[2])
		if err != nil {
			return Segment{}, fmt.Errorf("invalid index in path segment %q", raw)
		}
		if index < 1 {
			return Segment{}, fmt.Errorf("path segment %q: same-name-sibling index must start at 1", raw)
		}
		seg.Index = index
	}
	return seg, nil
}

// SplitPath parses an absolute path into its segments. The root path "/"
// yields no segments.
func SplitPath(path string) ([]Segment, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path %q must be absolute", path)
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := ParseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// JoinPath appends a segment to a parent path.
func JoinPath(parent, name string) string {
	if parent == "" || parent == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(parent, "/") + "/" + name
}

// FormatPath renders segments as an absolute path, omitting default indices.
func FormatPath(segments []Segment) string {
	if len(segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(seg.String())
	}
	return b.String()
}

// NormalizePath rewrites a path so that equivalent spellings compare equal:
// "/a[1]/b" and "/a/b/" both become "/a/b". Invalid paths are returned as-is.
func NormalizePath(path string) string {
	segments, err := SplitPath(path)
	if err != nil {
		return path
	}
	return FormatPath(segments)
}

// IsAncestorPath reports whether ancestor is a strict ancestor of path. Both
// must already be normalized.
func IsAncestorPath(ancestor, path string) bool {
	if ancestor == path {
		return false
	}
	if ancestor == "/" {
		return strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, ancestor+"/")
}
