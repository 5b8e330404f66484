// Package broadcast fans job snapshots out to live observers.
//
// The Hub keeps one observer set per job id. Every Publish encodes the
// snapshot once and hands the same bytes to each observer, so all observers
// of a job see identical frames. Observers whose Send fails are removed on
// the spot and never affect delivery to the rest. Late subscribers receive
// the job's current snapshot as their first frame.
package broadcast
