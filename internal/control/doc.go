// Package control handles control addressing, type validation and name
// resolution for the AV bridge.
//
// # Key Responsibilities
//
//   - Full-name handling: "Component.Control" splits on the first dot only,
//     and an empty component round-trips to a bare control name.
//   - Value validation: Validate coerces candidate values against a control's
//     declared type descriptor (Boolean → 0/1, numeric strings → numbers,
//     primitives → strings) and reports constraint violations per control.
//   - The control index: an O(1) map from full names to control references,
//     built lazily from the core's component tree and explicitly
//     invalidatable.
//
// # Thread Safety
//
// Validate and the name helpers are pure functions. Index is safe for
// concurrent use.
package control
