package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lekos21/moneychat/internal/domain"
)

type fakeFetcher struct {
	calls int
	tag   domain.Tag
	err   error
}

func (f *fakeFetcher) FetchTag(ctx context.Context, facet, tagID string) (domain.Tag, error) {
	f.calls++
	return f.tag, f.err
}

func loadedResolver(fetcher Fetcher) *Resolver {
	r := NewResolver(fetcher)
	r.Load([]domain.Tag{
		{TagID: "food", Facet: domain.FacetArea, Name: "Food", Icon: "utensils",
			Colors: domain.TagColors{Hex: "#a6e3a1"}, Synonyms: []string{"groceries", "restaurant"}, Active: true},
		{TagID: "transport", Facet: domain.FacetArea, Name: "Transport", Active: true},
		{TagID: "work", Facet: domain.FacetContext, Name: "Work", Active: true},
		{TagID: "retired", Facet: domain.FacetArea, Name: "Old", Active: false},
	})
	return r
}

func TestResolveChain(t *testing.T) {
	t.Parallel()

	r := loadedResolver(nil)

	// Explicit tag id wins.
	byID := r.Resolve(&domain.Expense{TagID: "transport", AreaTags: []string{"food"}})
	require.NotNil(t, byID)
	require.Equal(t, "transport", byID.TagID)

	// Falls back to the first area tag, case-normalized.
	byArea := r.Resolve(&domain.Expense{AreaTags: []string{"Food"}})
	require.NotNil(t, byArea)
	require.Equal(t, "food", byArea.TagID)

	// Inline tag objects on legacy records are returned verbatim.
	inline := &domain.Tag{TagID: "legacy", Name: "Legacy"}
	byInline := r.Resolve(&domain.Expense{Tag: inline})
	require.Same(t, inline, byInline)

	// Nothing applies.
	require.Nil(t, r.Resolve(&domain.Expense{}))
	require.Nil(t, r.Resolve(nil))
}

func TestResolveAreaTagThroughSynonym(t *testing.T) {
	t.Parallel()

	r := loadedResolver(nil)

	got := r.Resolve(&domain.Expense{AreaTags: []string{"groceries"}})
	require.NotNil(t, got)
	require.Equal(t, "food", got.TagID)

	// The styled chip shows the resolved tag, not the gray default.
	chip := r.StyleFor(&domain.Expense{AreaTags: []string{"groceries"}})
	require.Equal(t, "Food", chip.Name)
	require.Equal(t, "utensils", chip.Icon)

	// One edit away still resolves.
	fuzzy := r.Resolve(&domain.Expense{AreaTags: []string{"restaurants"}})
	require.NotNil(t, fuzzy)
	require.Equal(t, "food", fuzzy.TagID)
}

func TestByFacet(t *testing.T) {
	t.Parallel()

	r := loadedResolver(nil)
	require.Len(t, r.ByFacet(domain.FacetArea), 2) // inactive tag dropped
	require.Len(t, r.ByFacet(domain.FacetContext), 1)
	require.Empty(t, r.ByFacet("unknown"))
	require.NotNil(t, r.ByFacet("unknown"))
}

func TestResolveName(t *testing.T) {
	t.Parallel()

	r := loadedResolver(nil)

	require.Equal(t, "food", r.ResolveName("food").TagID)
	require.Equal(t, "food", r.ResolveName("groceries").TagID)
	// One edit away still matches.
	require.Equal(t, "food", r.ResolveName("restaurants").TagID)
	require.Nil(t, r.ResolveName("spaceship"))
	require.Nil(t, r.ResolveName(""))
}

func TestFetchMemoizedOncePerKey(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{tag: domain.Tag{TagID: "gadgets", Facet: domain.FacetArea, Name: "Gadgets", Active: true}}
	r := loadedResolver(fetcher)
	ctx := context.Background()

	require.True(t, r.NeedsFetch(domain.FacetArea, "gadgets"))
	first := r.Fetch(ctx, domain.FacetArea, "gadgets")
	second := r.Fetch(ctx, domain.FacetArea, "gadgets")
	require.Equal(t, 1, fetcher.calls)
	require.Equal(t, first, second)
	require.False(t, r.NeedsFetch(domain.FacetArea, "gadgets"))

	// Fetched tags become resolvable.
	got := r.Resolve(&domain.Expense{AreaTags: []string{"gadgets"}})
	require.NotNil(t, got)
	require.Equal(t, "Gadgets", got.Name)
}

func TestFetchFailureCachesSynthesizedFallback(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("offline")}
	r := loadedResolver(fetcher)
	ctx := context.Background()

	tag := r.Fetch(ctx, domain.FacetArea, "street_food")
	require.Equal(t, "street_food", tag.TagID)
	require.Equal(t, "Street Food", tag.Name)
	require.Equal(t, "tag", tag.Icon)

	// The failing call is not repeated.
	r.Fetch(ctx, domain.FacetArea, "street_food")
	require.Equal(t, 1, fetcher.calls)
}

func TestNeedsFetchSkipsLoadedTags(t *testing.T) {
	t.Parallel()

	r := loadedResolver(&fakeFetcher{})
	require.False(t, r.NeedsFetch(domain.FacetArea, "food"))
	require.False(t, r.NeedsFetch(domain.FacetArea, "Food"))
}

func TestStyleOfNeverFails(t *testing.T) {
	t.Parallel()

	s := StyleOf(nil)
	require.Equal(t, "Tag", s.Name)
	require.Equal(t, "tag", s.Icon)

	partial := StyleOf(&domain.Tag{TagID: "weird_one"})
	require.Equal(t, "Weird One", partial.Name)
	require.Equal(t, "tag", partial.Icon)

	full := StyleOf(&domain.Tag{Name: "Food", Icon: "utensils",
		Colors: domain.TagColors{Hex: "#a6e3a1"}})
	require.Equal(t, "Food", full.Name)
	require.Equal(t, "utensils", full.Icon)
}

func TestStyleForUsesResolution(t *testing.T) {
	t.Parallel()

	r := loadedResolver(nil)
	got := r.StyleFor(&domain.Expense{AreaTags: []string{"food"}})
	require.Equal(t, "Food", got.Name)
	require.Equal(t, "utensils", got.Icon)

	fallback := r.StyleFor(&domain.Expense{})
	require.Equal(t, "Tag", fallback.Name)
}
