package repo

import "testing"

func TestLikeEscaperTreatsMetacharactersLiterally(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pasta", "pasta"},
		{"%", `\%`},
		{"100%_done", `100\%\_done`},
		{`back\slash`, `back\\slash`},
		{"", ""},
	}
	for _, tc := range cases {
		if got := likeEscaper.Replace(tc.in); got != tc.want {
			t.Fatalf("для %q ожидали %q, получили %q", tc.in, tc.want, got)
		}
	}
}
