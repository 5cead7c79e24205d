package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFilterByArtifact(t *testing.T) {
	services := []Service{
		{ID: "org.ga4gh.drs1", Name: "DRS One", Type: Type{Group: "org.ga4gh", Artifact: "drs", Version: "1.2.0"}},
		{ID: "org.ga4gh.wes1", Name: "WES One", Type: Type{Group: "org.ga4gh", Artifact: "wes", Version: "1.0.0"}},
		{ID: "org.ga4gh.drs2", Name: "DRS Two", Type: Type{Group: "org.ga4gh", Artifact: "drs", Version: "1.4.0"}},
		{ID: "org.example.untyped", Name: "No Artifact"},
	}

	tests := []struct {
		name     string
		artifact string
		wantIDs  []string
	}{
		{
			name:     "empty filter returns everything",
			artifact: "",
			wantIDs:  []string{"org.ga4gh.drs1", "org.ga4gh.wes1", "org.ga4gh.drs2", "org.example.untyped"},
		},
		{
			name:     "drs filter keeps only drs records",
			artifact: "drs",
			wantIDs:  []string{"org.ga4gh.drs1", "org.ga4gh.drs2"},
		},
		{
			name:     "match is case-sensitive",
			artifact: "DRS",
			wantIDs:  []string{},
		},
		{
			name:     "no match yields empty set",
			artifact: "trs",
			wantIDs:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByArtifact(services, tt.artifact)
			ids := make([]string, 0, len(got))
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			require.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterByArtifact_RecordsWithoutArtifactOmitted(t *testing.T) {
	services := []Service{{ID: "a"}, {ID: "b", Type: Type{Artifact: "drs"}}}

	got := FilterByArtifact(services, "drs")
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].ID)
}

// Property: the filtered list is a subset of the input and every kept
// record matches the filter exactly.
func TestFilterByArtifact_SubsetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		artifacts := rapid.SliceOfN(
			rapid.SampledFrom([]string{"drs", "wes", "trs", "DRS", ""}),
			0, 20,
		).Draw(t, "artifacts")

		services := make([]Service, len(artifacts))
		for i, a := range artifacts {
			services[i] = Service{ID: rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "id"), Type: Type{Artifact: a}}
		}

		filter := rapid.SampledFrom([]string{"drs", "wes", "DRS"}).Draw(t, "filter")
		got := FilterByArtifact(services, filter)

		require.LessOrEqual(t, len(got), len(services))
		for _, s := range got {
			require.Equal(t, filter, s.Artifact())
		}

		// Unfiltered output is a superset: every matching record survives.
		want := 0
		for _, s := range services {
			if s.Artifact() == filter {
				want++
			}
		}
		require.Len(t, got, want)
	})
}
