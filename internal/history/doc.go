// Package history records the snapshots a dispatcher produces.
//
// Snapshots are immutable, so keeping the timeline is just keeping
// references. A Recorder is a post-dispatch hook:
//
//	rec := history.NewRecorder(d.State(), 100)
//	d.Use(rec)
//
//	prev, err := rec.Undo() // snapshot before the last change
//	next, err := rec.Redo()
//
// Consecutive changes can be collapsed into one undo unit with BeginGroup
// and EndGroup. Replay reduces a message log without a dispatcher, which is
// how recorded sessions are reproduced.
package history
