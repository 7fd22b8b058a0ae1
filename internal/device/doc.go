// Package device defines the terminal adapter contract and ships the CSV
// file-dump adapter.
//
// The sync engine never talks to hardware directly. It sees a Conn: a
// connected terminal that can suspend writes, enumerate users, hand over
// its punch backlog, and accept pushed users. Adapter is the factory that
// knows how to reach a particular kind of terminal.
//
// DumpAdapter reads offline exports (punches.csv, users.csv in one
// directory) through the same contract, so a run against a USB stick dump
// and a run against a live terminal are the same code path. Exports come
// from vendor tools with inconsistent encodings; the parser sniffs BOMs
// and falls back through UTF-16 and Latin-1 before giving up.
package device
