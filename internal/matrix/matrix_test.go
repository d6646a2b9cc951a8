package matrix_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
)

func labels(vs []matrix.Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Label()
	}
	return out
}

func TestAll_EnumerationOrder(t *testing.T) {
	all := matrix.All()
	require.Len(t, all, 36)

	assert.Equal(t, "cat1_gf2_short_r3", all[0].Label())
	assert.Equal(t, "cat1_gf2_short_r5", all[1].Label())
	assert.Equal(t, "cat1_gf2_fast_r3", all[2].Label())
	assert.Equal(t, "cat5_gf256_fast_r5", all[35].Label())

	seen := make(map[string]struct{}, len(all))
	for _, v := range all {
		assert.True(t, v.Valid())
		seen[v.Label()] = struct{}{}
	}
	assert.Len(t, seen, 36, "labels must be unique")
}

func TestVariant_Defines(t *testing.T) {
	v, err := matrix.Lookup("cat3_gf256_short_r3")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-DMQOM2_PARAM_SECURITY=192",
		"-DMQOM2_PARAM_BASE_FIELD=8",
		"-DMQOM2_PARAM_TRADEOFF=1",
		"-DMQOM2_PARAM_NBROUNDS=3",
	}, v.Defines())
}

func TestVariant_Flags(t *testing.T) {
	v, err := matrix.Lookup("cat1_gf16_fast_r5")
	require.NoError(t, err)

	tests := []struct {
		name string
		base string
		want string
	}{
		{
			name: "empty base",
			base: "",
			want: "-DMQOM2_PARAM_SECURITY=128 -DMQOM2_PARAM_BASE_FIELD=4 -DMQOM2_PARAM_TRADEOFF=0 -DMQOM2_PARAM_NBROUNDS=5",
		},
		{
			name: "conflicting parameter dropped",
			base: "-O3 -DMQOM2_PARAM_SECURITY=256",
			want: "-O3 -DMQOM2_PARAM_SECURITY=128 -DMQOM2_PARAM_BASE_FIELD=4 -DMQOM2_PARAM_TRADEOFF=0 -DMQOM2_PARAM_NBROUNDS=5",
		},
		{
			name: "unrelated tokens preserved in order",
			base: "  -march=native   -DFOO=1 -DMQOM2_PARAM_NBROUNDS=3 -g ",
			want: "-march=native -DFOO=1 -g -DMQOM2_PARAM_SECURITY=128 -DMQOM2_PARAM_BASE_FIELD=4 -DMQOM2_PARAM_TRADEOFF=0 -DMQOM2_PARAM_NBROUNDS=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Flags(tt.base))
		})
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name      string
		selectors []matrix.Selector
		wantLen   int
		first     string
	}{
		{"all", []matrix.Selector{matrix.SelectorAll}, 36, "cat1_gf2_short_r3"},
		{"category", []matrix.Selector{"cat3"}, 12, "cat3_gf2_short_r3"},
		{"category and field", []matrix.Selector{"cat5_gf16"}, 4, "cat5_gf16_short_r3"},
		{"down to tradeoff", []matrix.Selector{"cat1_gf256_fast"}, 2, "cat1_gf256_fast_r3"},
		{"full label", []matrix.Selector{"cat1_gf16_fast_r5"}, 1, "cat1_gf16_fast_r5"},
		{"empty", nil, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matrix.Expand(tt.selectors)
			require.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.first, got[0].Label())
			}
			for _, v := range got {
				matched := false
				for _, s := range tt.selectors {
					matched = matched || s.Matches(v)
				}
				assert.True(t, matched, "%s not matched by any selector", v)
			}
		})
	}
}

func TestExpand_UnionWithoutDuplicates(t *testing.T) {
	union := matrix.Expand([]matrix.Selector{"cat1_gf2", "cat1", "cat1_gf2_short_r3"})
	assert.Equal(t, labels(matrix.Expand([]matrix.Selector{"cat1"})), labels(union))

	mixed := matrix.Expand([]matrix.Selector{"cat5_gf2_fast_r3", "cat1_gf2_short_r3"})
	assert.Equal(t, []string{"cat1_gf2_short_r3", "cat5_gf2_fast_r3"}, labels(mixed),
		"results follow enumeration order, not selector order")
}

func TestParseSelector(t *testing.T) {
	valid := []string{"all", "cat1", "cat3_gf16", "cat5_gf256_short", "cat1_gf2_fast_r5"}
	for _, s := range valid {
		sel, err := matrix.ParseSelector(s)
		require.NoError(t, err, s)
		assert.Equal(t, matrix.Selector(s), sel)
	}

	invalid := []string{"", "cat2", "gf16", "cat1_gf4", "cat1_gf2_slow", "cat1_gf2_fast_r4", "cat1_", "ALL"}
	for _, s := range invalid {
		_, err := matrix.ParseSelector(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, mqerrors.ErrInvalidSelector), s)
	}
}

func TestParseSelectors_FailsOnFirstInvalid(t *testing.T) {
	_, err := matrix.ParseSelectors([]string{"cat1", "bogus", "cat3"})
	require.ErrorIs(t, err, mqerrors.ErrInvalidSelector)
	assert.Contains(t, err.Error(), "bogus")

	sels, err := matrix.ParseSelectors([]string{"cat1", "cat3_gf2"})
	require.NoError(t, err)
	assert.Len(t, sels, 2)
}

func TestVocabulary(t *testing.T) {
	words := matrix.Vocabulary()
	// all + 3 categories + 9 pairs + 18 triples + 36 labels
	assert.Len(t, words, 1+3+9+18+36)
	assert.Equal(t, "all", words[0])
	assert.Equal(t, "cat1", words[1])
}

func TestLookup_Unknown(t *testing.T) {
	_, err := matrix.Lookup("cat1_gf16")
	require.ErrorIs(t, err, mqerrors.ErrUnknownVariant)
}

func TestAxisValues(t *testing.T) {
	assert.Equal(t, []matrix.Category{matrix.Cat1, matrix.Cat3, matrix.Cat5}, matrix.Categories())
	assert.Equal(t, 256, matrix.Cat5.SecurityBits())
	assert.Equal(t, 1, matrix.GF2.Value())
	assert.Equal(t, 0, matrix.Fast.Value())
	assert.Equal(t, 1, matrix.Short.Value())
	assert.Equal(t, 5, matrix.R5.Value())
	assert.False(t, matrix.Category("cat2").Valid())
	assert.Equal(t, 0, matrix.Field("gf3").Value())
}
