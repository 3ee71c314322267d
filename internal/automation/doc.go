// Package automation evaluates per-owner keyframe sequences and pushes the
// resulting values through the parameter write protocol.
//
// Each automatable parameter on an owner may carry one Sequence. A sequence
// with its override flag set keeps the last explicitly written value and is
// skipped by UpdateAutomated.
package automation
