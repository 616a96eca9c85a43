// Package audit delivers session lifecycle events to durable storage.
//
// The Dispatcher implements session.AuditSink. Record never blocks: events go
// into a bounded queue drained by a single goroutine that writes them in
// batches. When the queue is full the event is dropped and counted. A failed
// batch is kept and retried on the next tick, up to the queue capacity.
//
// Writers:
//   - LogWriter emits one structured log line per event.
//   - PostgresWriter inserts into sessiond.audit_log.
package audit
