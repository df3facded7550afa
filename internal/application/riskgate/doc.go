// Package riskgate implements the pre-execution compliance check.
//
// Evaluation is a pure function of the current portfolio state, the
// account's configured constraints and the proposed action: identical
// inputs always yield the identical verdict, and no state is mutated.
// Rejected actions never reach an agent; Modified verdicts carry a
// reduced, compliant action the dispatcher substitutes.
package riskgate
