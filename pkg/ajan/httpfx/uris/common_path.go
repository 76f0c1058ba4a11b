package uris

import "strings"

// CommonPath returns a path that both patterns' segments would match,
// preferring a literal segment over a wildcard when the two patterns
// disagree, and p2's wildcard name when both sides are wildcards. Used to
// build a concrete example path for "ambiguous pattern" diagnostics.
func CommonPath(p1, p2 *Pattern) string { //nolint:varnamelen
	var b strings.Builder //nolint:varnamelen

	n := max(len(p1.Segments), len(p2.Segments))

	for i := range n {
		switch {
		case i >= len(p1.Segments):
			b.WriteByte('/')
			b.WriteString(p2.Segments[i].Str)
		case i >= len(p2.Segments):
			b.WriteByte('/')
			b.WriteString(p1.Segments[i].Str)
		default:
			seg1, seg2 := p1.Segments[i], p2.Segments[i]

			b.WriteByte('/')

			switch {
			case !seg1.Wild && !seg2.Wild:
				b.WriteString(seg1.Str)
			case seg1.Wild && !seg2.Wild:
				b.WriteString(seg2.Str)
			case !seg1.Wild && seg2.Wild:
				b.WriteString(seg1.Str)
			default:
				b.WriteString(seg2.Str)
			}
		}
	}

	return b.String()
}
