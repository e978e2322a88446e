// Package tags resolves tag identifiers and free-text category names to
// styling metadata, with a memoized network fallback for tags the bulk load
// did not include.
package tags

import (
	"context"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/lekos21/moneychat/internal/domain"
)

// Fetcher fetches a single tag by facet and id from the remote source.
type Fetcher interface {
	FetchTag(ctx context.Context, facet, tagID string) (domain.Tag, error)
}

// Resolver owns the loaded tag maps and the per-session fetch memo. The
// facet and id maps are pure derivations of the loaded tag list, recomputed
// on every Load.
type Resolver struct {
	mu      sync.Mutex
	byID    map[string]domain.Tag
	byFacet map[string][]domain.Tag
	memo    map[string]domain.Tag // "facet:id" -> fetched or synthesized tag
	asked   map[string]bool       // fetch attempted this session
	fetcher Fetcher
}

func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{
		byID:    make(map[string]domain.Tag),
		byFacet: make(map[string][]domain.Tag),
		memo:    make(map[string]domain.Tag),
		asked:   make(map[string]bool),
		fetcher: fetcher,
	}
}

// Load replaces the tag source list and recomputes the derived maps.
// Inactive tags are dropped here, matching the server's list endpoint.
func (r *Resolver) Load(tags []domain.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]domain.Tag, len(tags))
	r.byFacet = make(map[string][]domain.Tag)
	for _, t := range tags {
		if !t.Active {
			continue
		}
		r.byID[strings.ToLower(t.TagID)] = t
		r.byFacet[t.Facet] = append(r.byFacet[t.Facet], t)
	}
}

// ByFacet returns the precomputed grouping for a facet. Unknown facets get
// an empty list, never nil semantics the caller has to guard.
func (r *Resolver) ByFacet(facet string) []domain.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Tag, len(r.byFacet[facet]))
	copy(out, r.byFacet[facet])
	return out
}

// Resolve binds an expense to its tag: explicit TagID first, then the first
// area tag (as an id, falling back to synonym matching), then any inline
// tag carried by legacy records. Returns nil when nothing applies.
func (r *Resolver) Resolve(e *domain.Expense) *domain.Tag {
	if e == nil {
		return nil
	}
	if e.TagID != "" {
		if t := r.lookup(e.TagID); t != nil {
			return t
		}
	}
	if len(e.AreaTags) > 0 && e.AreaTags[0] != "" {
		if t := r.ResolveName(e.AreaTags[0]); t != nil {
			return t
		}
	}
	if e.Tag != nil {
		return e.Tag
	}
	return nil
}

// ResolveName resolves a free-text category name: exact id match first,
// then tag synonyms, exact before fuzzy (levenshtein distance 1 absorbs
// trivial misspellings and plurals).
func (r *Resolver) ResolveName(name string) *domain.Tag {
	if t := r.lookup(name); t != nil {
		return t
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		for _, syn := range t.Synonyms {
			if strings.ToLower(syn) == needle {
				tag := t
				return &tag
			}
		}
	}
	for _, t := range r.byID {
		for _, syn := range t.Synonyms {
			if levenshtein.ComputeDistance(strings.ToLower(syn), needle) <= 1 {
				tag := t
				return &tag
			}
		}
	}
	return nil
}

func (r *Resolver) lookup(id string) *domain.Tag {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[key]; ok {
		return &t
	}
	for _, facet := range []string{domain.FacetArea, domain.FacetContext} {
		if t, ok := r.memo[facet+":"+key]; ok {
			return &t
		}
	}
	return nil
}

// NeedsFetch reports whether a facet+id pair has never been requested this
// session. Each unique key triggers at most one remote fetch.
func (r *Resolver) NeedsFetch(facet, tagID string) bool {
	key := facet + ":" + strings.ToLower(tagID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.asked[key] {
		return false
	}
	if _, ok := r.byID[strings.ToLower(tagID)]; ok {
		return false
	}
	return true
}

// Fetch performs the memoized remote lookup for facet+id. A failed fetch
// caches a synthesized fallback tag (title-cased id, default styling) so
// repeated renders do not repeat the failing call. Never returns an error;
// absence of data degrades, it does not fail.
func (r *Resolver) Fetch(ctx context.Context, facet, tagID string) domain.Tag {
	key := facet + ":" + strings.ToLower(tagID)
	r.mu.Lock()
	if t, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return t
	}
	r.asked[key] = true
	fetcher := r.fetcher
	r.mu.Unlock()

	var tag domain.Tag
	if fetcher != nil {
		if t, err := fetcher.FetchTag(ctx, facet, tagID); err == nil {
			tag = t
		}
	}
	if tag.TagID == "" {
		tag = fallbackTag(facet, tagID)
	}

	r.mu.Lock()
	r.memo[key] = tag
	r.mu.Unlock()
	return tag
}

func fallbackTag(facet, tagID string) domain.Tag {
	id := strings.ToLower(strings.TrimSpace(tagID))
	return domain.Tag{
		TagID:  id,
		Facet:  facet,
		Name:   titleCase(id),
		Icon:   defaultIcon,
		Active: true,
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
