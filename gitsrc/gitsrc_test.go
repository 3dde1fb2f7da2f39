package gitsrc

import "testing"

func TestIsJava(t *testing.T) {
	cases := map[string]bool{
		"src/main/java/com/example/Foo.java": true,
		"Foo.JAVA":                           true,
		"README.md":                          false,
		"build.gradle":                       false,
		"":                                   false,
	}
	for path, want := range cases {
		if got := isJava(path); got != want {
			t.Errorf("isJava(%q) = %v, want %v", path, got, want)
		}
	}
}
