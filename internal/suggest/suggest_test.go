package suggest

import (
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"category", "category", 0},
		{"categry", "category", 1},
		{"amount", "amonut", 2},
		{"merchant", "merchnat", 2},
	}

	for _, tc := range tests {
		got := levenshtein(tc.a, tc.b)
		if got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFlagSuggestsClosest(t *testing.T) {
	valid := []string{"--amount", "--category", "--merchant", "--note", "--date"}

	result := Flag("--categry", valid)
	if len(result) == 0 {
		t.Fatal("expected at least one suggestion for --categry")
	}
	if result[0] != "--category" {
		t.Errorf("best suggestion = %q, want --category", result[0])
	}
}

func TestFlagNoMatchForGibberish(t *testing.T) {
	valid := []string{"--amount", "--category"}

	result := Flag("--zzzzzzzzzzzzzzzz", valid)
	if len(result) != 0 {
		t.Errorf("gibberish should yield no suggestions, got %v", result)
	}
}

func TestFlagCapsAtThree(t *testing.T) {
	valid := []string{"--aa", "--ab", "--ac", "--ad", "--ae"}

	result := Flag("--a", valid)
	if len(result) > 3 {
		t.Errorf("got %d suggestions, want at most 3", len(result))
	}
}

func TestGetFlagHint(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"--payee", "--merchant, -m"},
		{"filter", "--query, -q"},
		{"--FORCE", "--yes"},
		{"--nonsense", ""},
	}

	for _, tc := range tests {
		got := GetFlagHint(tc.flag)
		if got != tc.want {
			t.Errorf("GetFlagHint(%q) = %q, want %q", tc.flag, got, tc.want)
		}
	}
}

func TestCategoriesTypo(t *testing.T) {
	known := []string{"groceries", "transport", "dining", "rent"}

	result := Categories("grocories", known)
	if len(result) == 0 || result[0] != "groceries" {
		t.Errorf("Categories(grocories) = %v, want groceries first", result)
	}
}

func TestCategoriesExactMatchIsNotATypo(t *testing.T) {
	known := []string{"groceries", "dining"}

	if result := Categories("dining", known); result != nil {
		t.Errorf("exact match should yield nil, got %v", result)
	}
	if result := Categories("DINING", known); result != nil {
		t.Errorf("case-insensitive exact match should yield nil, got %v", result)
	}
}

func TestCategoriesNewCategoryYieldsNothing(t *testing.T) {
	known := []string{"groceries", "transport"}

	if result := Categories("utilities", known); len(result) != 0 {
		t.Errorf("distant category should yield no suggestions, got %v", result)
	}
	if result := Categories("", known); result != nil {
		t.Errorf("empty input should yield nil, got %v", result)
	}
}
