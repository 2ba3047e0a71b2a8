package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHILLER_TEST_SET", "value")
	t.Setenv("CHILLER_TEST_EMPTY", "")

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"set variable", "${CHILLER_TEST_SET}", "value"},
		{"unset variable", "${CHILLER_TEST_UNSET}", ""},
		{"unset with default", "${CHILLER_TEST_UNSET:-fallback}", "fallback"},
		{"set ignores default", "${CHILLER_TEST_SET:-fallback}", "value"},
		{"empty uses default", "${CHILLER_TEST_EMPTY:-fallback}", "fallback"},
		{"embedded", "redis://${CHILLER_TEST_SET}:6379", "redis://value:6379"},
		{"no pattern", "plain text", "plain text"},
		{"bare dollar untouched", "$CHILLER_TEST_SET", "$CHILLER_TEST_SET"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExpandEnv(tc.input); got != tc.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
