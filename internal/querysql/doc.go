// Package querysql compiles queryir queries to parameterized SQLite SQL
// for the journal store.
package querysql
