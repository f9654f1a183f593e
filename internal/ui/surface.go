// Package ui binds a passive presentation surface to the auth controller and
// the upload pipeline. The terminal surface in this package is the CLI's.
package ui

// FieldID names an input field on the surface.
type FieldID string

// Input fields of the data form.
const (
	FieldName     FieldID = "name"
	FieldShift    FieldID = "shift"
	FieldHours    FieldID = "hours"
	FieldPassword FieldID = "password"
)

// Element names a surface element whose visibility the binder controls.
type Element string

// Elements toggled by authorization state.
const (
	ElementAuthorize       Element = "authorize_button"
	ElementAuthInstruction Element = "auth_instruction"
	ElementSignOut         Element = "signout_button"
	ElementForm            Element = "data_form"
)

// Class styles a status message.
type Class string

// Status classes.
const (
	ClassNeutral Class = ""
	ClassSuccess Class = "success"
	ClassError   Class = "error"
)

// Surface is a passive read/write presentation surface.
type Surface interface {
	Field(id FieldID) string
	SetField(id FieldID, value string)
	SetStatus(text string, class Class)
	SetVisible(el Element, visible bool)
}
