package utils

import "testing"

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name       string
		existing   Label
		incoming   Label
		wantValue  string
		wantSource string
	}{
		{
			"both set",
			Label{Value: "a", Source: "recall"},
			Label{Value: "b", Source: "rank"},
			"a|b", "recall,rank",
		},
		{
			"empty existing takes incoming",
			Label{},
			Label{Value: "b", Source: "rank"},
			"b", "rank",
		},
		{
			"empty incoming keeps existing",
			Label{Value: "a", Source: "recall"},
			Label{},
			"a", "recall",
		},
		{
			"missing source filled from incoming",
			Label{Value: "a"},
			Label{Value: "b", Source: "rank"},
			"a|b", "rank",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeLabel(tt.existing, tt.incoming)
			if got.Value != tt.wantValue || got.Source != tt.wantSource {
				t.Errorf("MergeLabel = %+v, want {%s %s}", got, tt.wantValue, tt.wantSource)
			}
		})
	}
}
