package rmi

import "github.com/google/uuid"

// Exportable is implemented by any local value that can be bound into a
// Registry and handed out to a remote peer as a Remote Reference. Domain
// types become exportable by embedding Object.
type Exportable interface {
	// ClassName identifies the concrete type for the synthetic
	// ClassName#ObjectID service name used by auto-export.
	ClassName() string
	// ObjectID is a stable identifier assigned once, at construction.
	ObjectID() string
	// ExportedName returns the name this object was bound under, or ""
	// if it has never been bound.
	ExportedName() string
	setExportedName(name string)
}

// Object is embedded by any type that wants to be passed by reference
// across the wire (services, session handles, callback implementations).
// It supplies a stable identity and records the name the object is bound
// under once Bind (directly or via auto-export) assigns one.
type Object struct {
	class        string
	id           string
	exportedName string
}

// NewObject initializes an embeddable Object for a value of the given
// class name (conventionally the concrete Go type's name).
func NewObject(class string) Object {
	return Object{class: class, id: uuid.NewString()}
}

// ClassName implements Exportable.
func (o *Object) ClassName() string { return o.class }

// ObjectID implements Exportable.
func (o *Object) ObjectID() string { return o.id }

// ExportedName implements Exportable.
func (o *Object) ExportedName() string { return o.exportedName }

func (o *Object) setExportedName(name string) { o.exportedName = name }

// SyntheticName returns the ClassName#ObjectID name used for auto-export,
// independent of whether the object has actually been bound yet.
func SyntheticName(e Exportable) string {
	return e.ClassName() + ServiceNameSep + e.ObjectID()
}
