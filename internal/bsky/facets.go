package bsky

import (
	"context"
	"log/slog"
	"regexp"
)

var (
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9][a-zA-Z0-9.-]*\.[a-zA-Z]{2,})`)
	linkPattern    = regexp.MustCompile(`https?://[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_\+.~#?&/=]*`)
)

// HandleResolver resolves a handle to a DID. *Client satisfies it; tests
// inject a fake.
type HandleResolver interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

// GenerateFacets builds mention and link facets for outbound post text.
// Regexp match indices are byte offsets, which is exactly what the facet
// byte slices need. Unresolvable handles are skipped, not fatal.
func GenerateFacets(ctx context.Context, text string, resolver HandleResolver) []Facet {
	if text == "" {
		return nil
	}
	var facets []Facet

	for _, m := range mentionPattern.FindAllStringSubmatchIndex(text, -1) {
		handle := text[m[2]:m[3]]
		did, err := resolver.ResolveHandle(ctx, handle)
		if err != nil {
			slog.Warn("facets: could not resolve handle", "handle", handle, "error", err)
			continue
		}
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: m[0], ByteEnd: m[1]},
			Features: []FacetFeature{{Type: facetMention, DID: did}},
		})
	}

	for _, m := range linkPattern.FindAllStringIndex(text, -1) {
		uri := text[m[0]:m[1]]
		if len(uri) > 2048 {
			continue
		}
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: m[0], ByteEnd: m[1]},
			Features: []FacetFeature{{Type: facetLink, URI: uri}},
		})
	}

	return facets
}
