package testutil

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateEnv, when set, rewrites golden files instead of comparing.
const UpdateEnv = "TASKMAN_UPDATE_GOLDEN"

var updateGolden = flag.Bool("update", false, "rewrite testdata/*.golden files")

func updating() bool {
	return *updateGolden || os.Getenv(UpdateEnv) != ""
}

// Golden compares got against testdata/<name>.golden. Line endings are
// normalized so files checked out with CRLF still match. Run the tests with
// -update or TASKMAN_UPDATE_GOLDEN=1 to rewrite the files.
func Golden(t *testing.T, name string, got []byte) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if updating() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("create testdata dir: %v", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v (run with -update to create it)\ngot:\n%s", path, err, got)
	}
	got = bytes.ReplaceAll(got, []byte("\r\n"), []byte("\n"))
	want = bytes.ReplaceAll(want, []byte("\r\n"), []byte("\n"))
	if bytes.Equal(got, want) {
		return
	}
	line, w, g := firstDiff(string(want), string(got))
	t.Errorf("%s differs at line %d\nwant: %q\ngot:  %q\n\nfull output:\n%s", path, line, w, g, got)
}

// firstDiff returns the 1-based number of the first differing line and both
// versions of it. A missing line is reported as "".
func firstDiff(want, got string) (int, string, string) {
	wl := strings.Split(want, "\n")
	gl := strings.Split(got, "\n")
	for i := 0; i < max(len(wl), len(gl)); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g || i >= len(wl) || i >= len(gl) {
			return i + 1, w, g
		}
	}
	return 0, "", ""
}
