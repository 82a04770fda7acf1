package main

import (
	"fmt"
	"os"
)

// FatalError writes an error message to stderr and exits.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with an actionable hint.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// FatalErrorRespectJSON emits the error as JSON when --json is set,
// plain text otherwise.
func FatalErrorRespectJSON(format string, args ...interface{}) {
	if jsonOutput {
		outputJSONError(fmt.Errorf(format, args...), "")
	}
	FatalError(format, args...)
}
