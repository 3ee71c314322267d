// Package frame provides the half-open integer frame span used for clip
// placement, loop regions, and selection ranges.
//
// A Span covers [Begin, Begin+Duration). Spans are plain comparable values;
// every operation returns a new span and never mutates its receiver.
package frame
