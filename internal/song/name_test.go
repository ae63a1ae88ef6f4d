package song

import "testing"

func TestParseName(t *testing.T) {

	tests := []struct {
		base    string
		want    []string
		invalid bool
	}{
		{base: "song", want: []string{"song"}},
		{base: "verse_chorus", want: []string{"verse", "chorus"}},
		{base: "AmazingGrace", want: []string{"AmazingGrace"}},
		{base: "a_b_c", invalid: true},
		{base: "_x", invalid: true},
		{base: "x_", invalid: true},
		{base: "_", invalid: true},
		{base: "", invalid: true},
		{base: "a__b", invalid: true},
	}

	for _, tc := range tests {
		got, err := ParseName(tc.base)

		if tc.invalid {
			if err == nil {
				t.Errorf("expected %q to be invalid, got %v", tc.base, got)
			}
			continue
		}

		if err != nil {
			t.Errorf("expected %q to parse, got error: %v", tc.base, err)
			continue
		}

		if len(got) != len(tc.want) {
			t.Errorf("expected %q to yield %d tokens, got %d", tc.base, len(tc.want), len(got))
			continue
		}

		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Errorf("expected token %d of %q to be %q, got %q", i, tc.base, tc.want[i], got[i])
			}
		}
	}
}

func TestSanitizeTitle(t *testing.T) {

	tests := []struct {
		title string
		want  string
	}{
		{title: "anthem", want: "anthem"},
		{title: "verse chorus", want: "verse_chorus"},
		{title: `bad<>:"/\|?*name`, want: "badname"},
		{title: "  spaced  out  ", want: "spaced_out"},
		{title: "tabs\tand\nnewlines", want: "tabs_and_newlines"},
	}

	for _, tc := range tests {
		if got := SanitizeTitle(tc.title); got != tc.want {
			t.Errorf("expected SanitizeTitle(%q) to be %q, got %q", tc.title, tc.want, got)
		}
	}
}
