// Package fuzztests houses Go fuzz harnesses for the stamp text format, the
// constant codec and the integer transfer functions. They guard against
// panics on arbitrary input and check round-trip and soundness properties
// on whatever the fuzzer finds.
package fuzztests
