// Package pyclass implements the extension object layout engine.
//
// This package contains:
//   - Class registration with native and user-defined base chains
//   - Static and opaque layout strategies with byte-exact offset math
//   - Per-instance contents records (value, borrow state, thread state,
//     optional dict and weak reference slots)
//   - The borrow checker and thread affinity checker
//   - Lazy type object resolution gated on runtime attachment
//   - Ordered deallocation across the inheritance chain
package pyclass
