// Package entityfile loads local entity definitions from YAML.
//
// A definition names the entity's identity, capabilities, streams and
// controls. Parse validates the document and reports errors anchored to
// the offending line; Build turns a definition into a model.LocalEntity
// ready to serve.
package entityfile
