// Package overlap flags spin requests that arrived while an earlier spin was
// still unresolved.
//
// The classifier replays a history oldest-first through a two-state machine:
//
//	IDLE             --SPIN_REQUEST-->            SPIN_IN_PROGRESS
//	SPIN_IN_PROGRESS --SPIN_REQUEST--> (flagged)  SPIN_IN_PROGRESS
//	any              --SPIN_COMPLETE | RESET-->   IDLE
//
// Every other type leaves the state unchanged. The result is recomputed from
// whatever history is passed in; nothing is carried between calls. A request
// whose opening spin was already evicted from a bounded log is not flagged.
package overlap
