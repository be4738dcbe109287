/*
Package runid provides a structured identifier for one invocation of a suite
program, based on the canonical format `program.mode[run]`,
e.g., `scenario_a.head[3]`.

Program names are restricted to letters, digits, `_` and `-` so the format
stays unambiguous. This package centralizes all formatting and parsing of
the identifier.
*/
package runid
