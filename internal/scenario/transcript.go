package scenario

import (
	"fmt"
	"strings"
)

// Summary counts passed and failed outcomes.
func Summary(outcomes []Outcome) (passed, failed int) {
	for _, o := range outcomes {
		if o.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// Transcript renders outcomes as stable plain text, one block per file.
// Passing cases print their expectation; failing ones print what they got.
func Transcript(outcomes []Outcome) string {
	var b strings.Builder
	file := ""
	for i, o := range outcomes {
		if i == 0 || o.File != file {
			file = o.File
			fmt.Fprintf(&b, "scenario %s\n", file)
		}
		if o.Passed {
			fmt.Fprintf(&b, "  PASS  %s\n", o.Case.Name)
			fmt.Fprintf(&b, "        %s = %s\n", call(o.Case), o.Case.Expect)
			continue
		}
		fmt.Fprintf(&b, "  FAIL  %s\n", o.Case.Name)
		if o.Err != nil {
			fmt.Fprintf(&b, "        %s: %v\n", call(o.Case), o.Err)
			continue
		}
		fmt.Fprintf(&b, "        %s = %s, want %s\n", call(o.Case), o.Got, o.Case.Expect)
	}
	passed, failed := Summary(outcomes)
	fmt.Fprintf(&b, "%d passed, %d failed\n", passed, failed)
	return b.String()
}

func call(c Case) string {
	name := c.Op
	if c.Bits != 0 {
		name = fmt.Sprintf("%s->%d", c.Op, c.Bits)
	}
	return name + "(" + strings.Join(c.Args, ", ") + ")"
}
