// Package schema describes entity types to the persistence context.
//
// A Schema names an entity type, its table, its primary-key field and its
// ordered columns. Each field carries an accessor capability: a getter when the
// field can be read (snapshotted and written to the store) and a setter when it
// can be written (populated on load, or assigned a generated key).
//
// Accessors are plain closures bound once at schema-build time. Three binding
// paths exist and all produce the same *Schema:
//
//   - Define[T]: explicit getter/setter functions, no reflection
//   - Bind[T]: struct tags of the form `db:"column[,pk][,readonly]"`
//   - Descriptor: a table/column description, typically loaded from CUE files
//     with LoadDescriptors, bound to a struct (BindDescriptor) or to the
//     map-backed Record entity (ForRecord)
//
// The persistence context depends only on Schema and Field; it never inspects
// entities itself.
package schema
