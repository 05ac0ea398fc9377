package fuzztests

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxFuzzInput = 256 // stamp texts are short; longer inputs only slow the fuzzer
)

var stampSeeds = []string{
	"i32",
	"i8<empty>",
	"i8 [-1]",
	"i8 [10 - 12] bits:00001xxx",
	"i32 [0 - 10] bits:0...0xxxx",
	"i32 [-5 - 5] {!=0}",
	"i64 [-9223372036854775808 - -1] bits:1xxx",
	"f32",
	"f64<empty>",
	"f32 [NaN - NaN]",
	"f32! [1 - 2]",
	"f64! [-0 - 0]",
	"f64 [-Inf - 0]",
	"a!# Point",
	"a - NULL",
	"void*",
}

func addStampSeeds(f *testing.F) {
	for _, s := range stampSeeds {
		f.Add(s)
	}
	addScenarioSeeds(f)
}

// addScenarioSeeds feeds every quoted stamp from the scenario corpus.
func addScenarioSeeds(f *testing.F) {
	root := filepath.Join("..", "scenario", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()
		sc := bufio.NewScanner(file)
		for sc.Scan() {
			for _, field := range strings.Split(sc.Text(), `"`) {
				if len(field) > 1 && (field[0] == 'i' || field[0] == 'f') && len(field) <= maxFuzzInput {
					f.Add(field)
				}
			}
		}
		return nil
	})
}
