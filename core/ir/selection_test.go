package ir

import (
	"reflect"
	"testing"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		input   string
		want    Selection
		wantErr bool
	}{
		{input: "23", want: Selection{23}},
		{input: "1-3", want: Selection{1, 2, 3}},
		{input: "1-3, 7", want: Selection{1, 2, 3, 7}},
		{input: " 119 ,1-2", want: Selection{1, 2, 119}},
		{input: "5,5,4-6", want: Selection{4, 5, 6}},
		{input: "150", want: Selection{150}},
		{input: "", wantErr: true},
		{input: "0", wantErr: true},
		{input: "151", wantErr: true},
		{input: "10-2", wantErr: true},
		{input: "1-", wantErr: true},
		{input: "Ps 23", wantErr: true},
		{input: "1,,2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSelection(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSelection(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSelection(%q) error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSelection(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 150 {
		t.Fatalf("len(All()) = %d, want 150", len(all))
	}
	if all[0] != 1 || all[149] != 150 {
		t.Errorf("All() bounds = %d..%d, want 1..150", all[0], all[149])
	}
}

func TestSelectionString(t *testing.T) {
	tests := []struct {
		sel  Selection
		want string
	}{
		{Selection{1, 2, 3, 7}, "1-3,7"},
		{Selection{23}, "23"},
		{Selection{1, 3, 5}, "1,3,5"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := tt.sel.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", []int(tt.sel), got, tt.want)
		}
	}

	round, err := ParseSelection(All().String())
	if err != nil || len(round) != 150 {
		t.Errorf("ParseSelection(All().String()) = %d psalms, err %v", len(round), err)
	}
}

func TestPoemLineCount(t *testing.T) {
	p := Poem{Number: 1, Verses: []Verse{
		{Number: "1", Lines: []string{"a", "b"}},
		{Number: "2", Lines: []string{"c"}},
	}}
	if got := p.LineCount(); got != 3 {
		t.Errorf("LineCount() = %d, want 3", got)
	}
}
