package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for /showIncludes parsing:
// - English marker lines yield trimmed header paths
// - Localized markers are recognized
// - The echoed source filename is dropped
// - Duplicates are removed
// - Unrecognized lines come back as diagnostics

func TestParseShowIncludes_English(t *testing.T) {
	t.Parallel()

	stderr := "a.cpp\r\n" +
		"Note: including file: C:\\VC\\include\\vector\r\n" +
		"Note: including file:  C:\\VC\\include\\memory\r\n" +
		"Note: including file: C:\\VC\\include\\vector\r\n"

	headers, diagnostics := parseShowIncludes(stderr, "pkg/a.cpp")
	assert.Equal(t, []string{`C:\VC\include\vector`, `C:\VC\include\memory`}, headers)
	assert.Empty(t, diagnostics)
}

func TestParseShowIncludes_LocalizedMarker(t *testing.T) {
	t.Parallel()

	stderr := "Hinweis: Einlesen der Datei: C:\\inc\\a.h\n"
	headers, diagnostics := parseShowIncludes(stderr, "")
	assert.Equal(t, []string{`C:\inc\a.h`}, headers)
	assert.Empty(t, diagnostics)
}

func TestParseShowIncludes_Diagnostics(t *testing.T) {
	t.Parallel()

	stderr := "a.cpp\n" +
		"Note: including file: C:\\inc\\a.h\n" +
		"pkg/a.cpp(12): error C2065: undeclared identifier\n"

	headers, diagnostics := parseShowIncludes(stderr, "pkg/a.cpp")
	assert.Equal(t, []string{`C:\inc\a.h`}, headers)
	assert.Equal(t, []string{"pkg/a.cpp(12): error C2065: undeclared identifier"}, diagnostics)
}
