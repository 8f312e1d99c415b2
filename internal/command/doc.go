// Package command is the surface consumed from outside the Kaas core: the
// GUI shell and the CLI call these methods and nothing deeper.
//
// Every method returns a success value or a tagged *Error with one of three
// kinds: storage, completion, or invalid_state. The kind is the only thing
// callers branch on; the message is for humans.
package command
