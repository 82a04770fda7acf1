package debug

import (
	"bytes"
	"io"
	"os"
	"testing"
)

// capture redirects the given stream while fn runs and returns what was
// written to it.
func capture(t *testing.T, stream **os.File, fn func()) string {
	t.Helper()
	old := *stream
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	*stream = w
	defer func() { *stream = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestEnabledFollowsVerboseMode(t *testing.T) {
	oldEnabled, oldVerbose := enabled, verboseMode
	defer func() { enabled, verboseMode = oldEnabled, oldVerbose }()

	enabled = false
	verboseMode = false
	if Enabled() {
		t.Error("Enabled() = true with debug off and no --verbose")
	}

	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled() = false after SetVerbose(true)")
	}

	SetVerbose(false)
	if Enabled() {
		t.Error("Enabled() = true after SetVerbose(false)")
	}

	// TADA_DEBUG alone is enough.
	enabled = true
	if !Enabled() {
		t.Error("Enabled() = false with debug env set")
	}
}

func TestLogfGatedByDebug(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  string
	}{
		{"writes to stderr when debug is on", true, "import: skipping task t9: no resolvable list\n"},
		{"silent when debug is off", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled := enabled
			defer func() { enabled = oldEnabled }()
			enabled = tt.debug

			got := capture(t, &os.Stderr, func() {
				Logf("import: skipping task %s: no resolvable list\n", "t9")
			})
			if got != tt.want {
				t.Errorf("Logf() wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintfGatedByDebug(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  string
	}{
		{"writes to stdout when debug is on", true, "reorder: task t3 -> 1500\n"},
		{"silent when debug is off", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled := enabled
			defer func() { enabled = oldEnabled }()
			enabled = tt.debug

			got := capture(t, &os.Stdout, func() {
				Printf("reorder: task %s -> %.0f\n", "t3", 1500.0)
			})
			if got != tt.want {
				t.Errorf("Printf() wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuietSuppressesNormalOutput(t *testing.T) {
	oldQuiet := quietMode
	defer func() { quietMode = oldQuiet }()

	quietMode = false
	if IsQuiet() {
		t.Error("IsQuiet() = true before SetQuiet")
	}

	got := capture(t, &os.Stdout, func() {
		PrintNormal("Imported %d tasks, %d lists\n", 3, 1)
	})
	if got != "Imported 3 tasks, 1 lists\n" {
		t.Errorf("PrintNormal() wrote %q", got)
	}

	SetQuiet(true)
	if !IsQuiet() {
		t.Error("IsQuiet() = false after SetQuiet(true)")
	}

	got = capture(t, &os.Stdout, func() {
		PrintNormal("Imported %d tasks, %d lists\n", 3, 1)
		PrintlnNormal("Done.")
	})
	if got != "" {
		t.Errorf("quiet mode still wrote %q", got)
	}
}

func TestPrintlnNormal(t *testing.T) {
	oldQuiet := quietMode
	defer func() { quietMode = oldQuiet }()
	quietMode = false

	got := capture(t, &os.Stdout, func() {
		PrintlnNormal("Created task", "t1")
	})
	if got != "Created task t1\n" {
		t.Errorf("PrintlnNormal() wrote %q", got)
	}
}
