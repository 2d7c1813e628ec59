package sequence

import (
	"reflect"
	"testing"
)

func newTestSearcher() *Searcher {
	s := NewSearcher(NewParser(ParserConfig{}), 16)
	s.Rebuild(
		map[string][]string{
			"morning":  {"lights_on kitchen", "wait 2.0", "coffee_start"},
			"evening":  {"lights_off kitchen", "if flag:late", "alarm_arm", "endif"},
			"party":    {"og_multizone-scene 4"},
			"mornings": {"noop"},
		},
		map[string]string{
			"panic_button": "alarm_trigger",
		},
	)
	return s
}

func TestSearch_TokenMatch(t *testing.T) {
	s := newTestSearcher()

	got := s.Search("kitchen")
	want := []string{"evening", "morning"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(kitchen) = %v, want %v", got, want)
	}
}

func TestSearch_SubstringMatch(t *testing.T) {
	s := newTestSearcher()

	got := s.Search("lights_on")
	want := []string{"morning"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(lights_on) = %v, want %v", got, want)
	}
}

func TestSearch_NameMatch(t *testing.T) {
	s := newTestSearcher()

	got := s.Search("panic")
	want := []string{"panic_button"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(panic) = %v, want %v", got, want)
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	s := newTestSearcher()

	got := s.Search("KITCHEN")
	want := []string{"evening", "morning"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Search(KITCHEN) = %v, want %v", got, want)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	s := newTestSearcher()

	if got := s.Search("garage"); len(got) != 0 {
		t.Errorf("Search(garage) = %v, want empty", got)
	}
	if got := s.Search(""); got != nil {
		t.Errorf("Search(\"\") = %v, want nil", got)
	}
}

func TestSearch_StaleAfterRebuild(t *testing.T) {
	s := newTestSearcher()

	if got := s.Search("coffee_start"); len(got) != 1 {
		t.Fatalf("Search(coffee_start) = %v, want one match", got)
	}

	s.Rebuild(map[string][]string{"other": {"noop"}}, nil)

	if got := s.Search("coffee_start"); len(got) != 0 {
		t.Errorf("Search(coffee_start) after rebuild = %v, want empty", got)
	}
}

func TestSearchByKind(t *testing.T) {
	s := newTestSearcher()

	tests := []struct {
		kind CommandKind
		want []string
	}{
		{kind: KindWait, want: []string{"morning"}},
		{kind: KindIf, want: []string{"evening"}},
		{kind: KindMultizone, want: []string{"party"}},
	}

	for _, tt := range tests {
		if got := s.SearchByKind(tt.kind); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SearchByKind(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	s := newTestSearcher()

	got := s.Suggest("morn", 5)
	want := []string{"morning", "mornings"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest(morn) = %v, want %v", got, want)
	}
}

func TestSuggest_CloseMisspelling(t *testing.T) {
	s := newTestSearcher()

	got := s.Suggest("evning", 3)
	if len(got) == 0 || got[0] != "evening" {
		t.Errorf("Suggest(evning) = %v, want evening first", got)
	}
}

func TestSuggest_RespectsMax(t *testing.T) {
	s := newTestSearcher()

	if got := s.Suggest("morn", 1); len(got) != 1 {
		t.Errorf("Suggest(morn, 1) = %v, want one entry", got)
	}
	if got := s.Suggest("morn", 0); got != nil {
		t.Errorf("Suggest(morn, 0) = %v, want nil", got)
	}
}

func TestSuggest_NoDistantMatches(t *testing.T) {
	s := newTestSearcher()

	if got := s.Suggest("zzzzzzzzzz", 5); len(got) != 0 {
		t.Errorf("Suggest(zzzzzzzzzz) = %v, want empty", got)
	}
}
