package github

import "strings"

// projection is a tree of field names to keep from an API response object.
// A leaf (empty subtree) keeps the value as-is, an inner node recurses.
type projection map[string]projection

// newProjection builds a projection tree from dotted field paths,
// e.g. ["id", "owner.login"] keeps the id and the owner's login.
func newProjection(fields []string) projection {
	root := make(projection)
	for _, field := range fields {
		node := root
		for _, part := range strings.Split(field, ".") {
			child, ok := node[part]
			if !ok {
				child = make(projection)
				node[part] = child
			}
			node = child
		}
	}
	return root
}

// apply projects an API object down to the configured fields.
// Fields missing from the object are kept as explicit nulls so the
// artifact shape stays stable across runs.
func (p projection) apply(item map[string]any) Record {
	out := make(Record, len(p))
	for field, sub := range p {
		value, ok := item[field]
		if !ok {
			out[field] = nil
			continue
		}

		if len(sub) == 0 {
			out[field] = value
			continue
		}

		nested, ok := value.(map[string]any)
		if !ok {
			out[field] = nil
			continue
		}
		out[field] = map[string]any(sub.apply(nested))
	}
	return out
}

// parsedLinks holds the pagination URLs from a Link response header.
type parsedLinks struct {
	next  string
	prev  string
	first string
	last  string
}

// parseLinkHeader parses an RFC 8288 style Link header as sent by the GitHub API,
// e.g. `<https://api.github.com/...?page=2>; rel="next", <...>; rel="last"`.
// Malformed segments are ignored.
func parseLinkHeader(header string) parsedLinks {
	var links parsedLinks
	if header == "" {
		return links
	}

	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(link, ";")
		if len(parts) != 2 {
			continue
		}

		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		target = target[1 : len(target)-1]

		switch strings.TrimSpace(parts[1]) {
		case `rel="next"`:
			links.next = target
		case `rel="prev"`:
			links.prev = target
		case `rel="first"`:
			links.first = target
		case `rel="last"`:
			links.last = target
		}
	}
	return links
}
