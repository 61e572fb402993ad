// Package queryir is a small query representation for reading the journal.
//
// Readers describe what they want (a table, a column list and a filter)
// and a backend compiler turns it into a concrete query:
//
//	[JournalFilter] → [Query IR] → [SQL backend]
//
// The representation is deliberately narrow:
//   - Select(from, filter, columns) over one known table
//   - Predicates: Equals, NotEquals, And
//   - Explicit column lists (no SELECT *)
//
// Values are ir.Value scalars. Arrays and objects never appear in a
// predicate because journal payloads are stored as canonical JSON text and
// are compared by hash, not by content.
//
// Every compiled query is ordered by the table's stable key so that two
// reads of the same journal return entries in the same order.
package queryir
