// Package anchor keeps the air gauge overlay attached to the module's HUD slot.
//
// The host HUD exposes an ordered list of candidate slots whose contents change
// when modules are moved or installed, and which may not exist yet while the HUD
// is still being built. Tracker finds the slot showing this device's icon and
// moves the overlay there; NotFound is an expected outcome, not an error.
//
// Refresh is event driven: the host calls it on pilot begin and slot changes,
// and Retrier repeats it a bounded number of times to ride out initialization
// races. Nothing in this package runs from the per-tick path except UpdateFill.
package anchor
