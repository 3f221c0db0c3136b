// Package flow drives multi-step automation against an EFEM link: the
// SequenceRunner executes a user-authored script of commands, waits and
// comments, the FlowController executes the fixed wafer-transfer recipe as a
// numbered state machine, and the RecoveryFlow restores a safe equipment
// state after an interrupted recipe.
//
// All three reuse the same Gateway (one command in flight at a time), the
// same cooperative stop signal, and the same Confirmer rendezvous for
// operator confirmations. At most one run may be active per runner.
package flow
