// Package log provides structured logging for RuzuDB using zerolog.
//
// Components log through a child logger obtained via WithComponent. The disk
// manager logs opening its file at Debug; the database logs WAL replay, and
// the CSV loaders and the serve-metrics command log completion and server
// start/stop, at Info; WAL tail truncation, discarded uncommitted
// transactions and mmap fallback log at Warn; a failed write-back during
// buffer-pool eviction logs at Error. The catalog and the node/relationship
// tables do not log, and page reads/writes, pin/unpin, record appends,
// close and checkpoint produce no log lines.
package log
