// Package model implements the AVDECC entity model store.
//
// # Descriptor Hierarchy
//
// An entity's model is a tree of typed descriptors rooted at ENTITY:
//
//	Entity 0x0011223344556677
//	├── Configuration 0 (active)
//	│   ├── STREAM_INPUT 0..n
//	│   ├── STREAM_OUTPUT 0..n
//	│   ├── AVB_INTERFACE 0
//	│   ├── CLOCK_DOMAIN 0
//	│   └── CONTROL 0..n
//	└── Configuration 1
//	    └── ...
//
// Descriptors are addressed by (descriptor_type, descriptor_index), unique
// within the active configuration. Switching configurations atomically
// replaces the visible subtree.
//
// # Local vs Remote
//
// A LocalEntity is owned by the application: its descriptors are read-only
// through the store and mutate only via the explicit SET command paths.
// The LocalEntity also carries the acquisition and lock state that the
// AECP responder enforces.
//
// Remote entities live in the Registry, a single-writer cache fed by ADP
// advertisements. Reads return copies so snapshot queries never race the
// protocol worker. Cached remote descriptors are invalidated when their
// entity departs or switches configuration.
package model
