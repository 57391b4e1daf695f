// Package sandbox provides a narrow, fully isolated script-expression
// evaluator used for regex testing in download queries.
//
// Extensions supply patterns in ECMA-262 regex syntax; evaluation happens
// inside a goja VM stripped of every host capability, so a hostile pattern
// can at worst time out.
package sandbox
