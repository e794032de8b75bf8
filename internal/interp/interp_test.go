// Copyright (c) 2026 The partree Authors
// SPDX-License-Identifier: MIT

package interp

import (
	"strings"
	"testing"
)

func runProgram(t *testing.T, program string, trailingNewline bool) string {
	t.Helper()
	var out strings.Builder
	if err := NewDriver().Run(strings.NewReader(program), &out, trailingNewline); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestPersistentSuccessorProgram(t *testing.T) {
	program := "INC 1\nINC 2\nINC 3\nSUC 1 3\nSUC 2 3\nSUC 3 3\nSUC 2 2\n"
	got := runProgram(t, program, false)
	want := strings.Join([]string{
		"SUC 1 3", "2",
		"SUC 2 3", "3",
		"SUC 3 3", "INFINITO",
		"SUC 2 2", "INFINITO",
	}, "\n")
	if got != want {
		t.Fatalf("output =\n%q\nwant\n%q", got, want)
	}
}

func TestCollegeRemoveProgram(t *testing.T) {
	program := "INC 1\nREM 42\nIMP 2\n"
	got := runProgram(t, program, false)
	want := "IMP 2\n1,0,N"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestVersionClampedToLatest(t *testing.T) {
	program := "INC 1\nSUC 1 999\n"
	got := runProgram(t, program, false)
	want := "SUC 1 1\nINFINITO"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestPmaImpAndSuc(t *testing.T) {
	program := "INC 5\nINC 1\nINC 3\nIMP\nSUC 1\nSUC 5\n"
	got := runProgram(t, program, false)
	want := strings.Join([]string{
		"IMP", "1 3 5",
		"SUC 1", "3",
		"SUC 5", "INFINITO",
	}, "\n")
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestTrailingNewlineFlag(t *testing.T) {
	program := "INC 1\nSUC 1 1\n"
	if got := runProgram(t, program, true); !strings.HasSuffix(got, "\n") {
		t.Fatalf("output %q does not end with a newline", got)
	}
	if got := runProgram(t, program, false); strings.HasSuffix(got, "\n") {
		t.Fatalf("output %q ends with a newline, want none", got)
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	program := "inc 1\nSuC 1 1\n"
	got := runProgram(t, program, false)
	want := "SUC 1 1\nINFINITO"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestParseErrorOnMalformedStatement(t *testing.T) {
	d := NewDriver()
	var out strings.Builder
	err := d.Run(strings.NewReader("INC notanumber\n"), &out, false)
	if err == nil {
		t.Fatalf("Run did not return an error for a malformed statement")
	}
	var pe *ParseError
	if !asParseError(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}

func TestBlankLinesIgnored(t *testing.T) {
	program := "INC 1\n\n   \nSUC 1 1\n"
	got := runProgram(t, program, false)
	want := "SUC 1 1\nINFINITO"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}
