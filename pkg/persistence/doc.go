// Package persistence stores local-entity runtime state in a JSON file.
//
// An AVDECC entity's available_index must never go backwards while it
// stays advertised: peers treat a decrease as "this entity restarted".
// Persisting a high-water mark across process restarts lets an entity
// resume advertising from a value above anything it ever sent. The
// current configuration index is saved alongside so the entity comes
// back up in the configuration it was last switched to.
package persistence
