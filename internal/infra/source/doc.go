// Package source reads the bulk public-record snapshots the pipeline
// ingests: the congress-legislators roster, Congress.gov BILLSTATUS XML,
// Voteview member and vote JSON, and the FEC pipe-delimited files.
//
// Every reader is lazy and restartable. Each call to Records reopens its
// files. A malformed record is reported as a *record.ParseError and
// reading continues; an I/O or archive error ends the sequence.
package source
