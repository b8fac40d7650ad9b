// Package aecp implements the AVDECC Enumeration and Control Protocol.
//
// Controller is the command side: it issues AEM commands to remote
// entities, matches responses by (target, sequence_id), retransmits on
// timeout, and enforces one in-flight command per command class per
// target. It never blocks inside the engine; public calls park on a
// per-command channel that the worker resolves from OnFrame or Sweep.
//
// Responder is the entity side: it serves READ_DESCRIPTOR from the local
// model, runs acquisition and lock transactions, applies SET commands
// through the model's explicit mutation paths, and answers anything it
// does not implement with NOT_IMPLEMENTED.
//
// Wire encoding of descriptor types goes through the compat package so a
// single canonical model talks to both protocol generations.
package aecp
