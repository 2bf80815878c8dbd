// Package core provides the business logic for matching CSV columns.
//
// A match takes two tables. The first contributes only its header row, which
// fixes the output columns and their order. The second contributes the data
// rows. Each output record carries the first table's header names in order,
// with values looked up in the second table by normalized header name. The
// package has no knowledge of HTTP and is shared by the web server and the
// command line tool.
//
// # Alignment
//
// [Align] is a pure function over two strings:
//
//	rs, err := core.Align("Name,Age", "age,name\n30,Alice")
//	// rs[0] == Record{{"Name", "Alice"}, {"Age", "30"}}
//
// Headers are compared after trimming and lowercasing ([NormalizeKey]). When
// the second table repeats a normalized header, the last occurrence wins.
// Columns missing from the second table, and cells past the end of a short
// row, produce empty values. Blank lines are skipped. Input parsing splits
// on every comma and does not honor quotes.
//
// # Workers
//
// [Worker.Run] loads both files and aligns them on a dedicated goroutine. Each
// invocation delivers exactly one outcome. A goroutine that panics or exits
// without a result is reported as a [*WorkerError], which the web layer maps
// to a server error rather than a client error. [JobLimiter] caps how many
// workers run at once.
//
// # Output
//
// [WriteCSV] writes the header line and one line per record, each terminated
// by "\n". A field is quoted only when it contains a comma or a double quote.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError]:
//
//   - FILE001-FILE005: File errors (size, form, missing, empty)
//   - MATCH001: No rows could be matched
//   - WRK001: Worker failure
//   - JOB001-JOB004: Job scheduling errors (busy, not found, cancelled, timeout)
//
// # History
//
// Every match is recorded in a [HistoryStore]: [PostgresHistory] when a
// database is configured, [MemoryHistory] otherwise. Old entries are removed
// by [Service.StartHistoryPurgeScheduler].
package core
