// Package adp implements the AVDECC Discovery Protocol.
//
// The Engine has two halves. The advertising half periodically multicasts
// ENTITY_AVAILABLE for each registered local entity, answers
// ENTITY_DISCOVER with a jittered re-advertisement, and multicasts
// ENTITY_DEPARTING when an entity is withdrawn. The listening half
// maintains the registry of remote entities: advertisements refresh the
// liveness deadline, DEPARTING evicts immediately, and the periodic sweep
// evicts entities whose valid_time lapsed.
//
// Evictions feed a cascade callback so the command and connection engines
// can fail in-flight work against the vanished entity.
//
// The Engine is not internally re-entrant: OnFrame and Sweep are expected
// to run on a single worker goroutine (the service layer's loop), while
// the registration methods may be called from anywhere.
package adp
