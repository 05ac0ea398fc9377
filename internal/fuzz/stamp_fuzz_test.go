package fuzztests

import (
	"testing"

	"numstamp/internal/stamp"
	"numstamp/internal/testkit"
)

// FuzzParseStamp checks that Parse never panics and that anything it
// accepts is canonical and prints back to text that parses to the same stamp.
func FuzzParseStamp(f *testing.F) {
	addStampSeeds(f)
	f.Fuzz(func(t *testing.T, text string) {
		if len(text) > maxFuzzInput {
			text = text[:maxFuzzInput]
		}
		s, err := stamp.Parse(text)
		if err != nil {
			return
		}
		if err := testkit.Check(s); err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		again, err := stamp.Parse(s.String())
		if err != nil {
			t.Fatalf("Parse(%q) printed %q which does not parse: %v", text, s.String(), err)
		}
		if !again.Equal(s) {
			t.Fatalf("Parse(%q) = %s, reparsed as %s", text, s, again)
		}
	})
}
