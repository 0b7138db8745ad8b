// Package cell provides the data records shared by the developmental-cycle
// engine, the culture host and the run store.
//
// This package contains type definitions only. All other internal packages
// import cell; cell imports nothing internal.
//
// Key design constraints:
//   - Gene and RNA levels use fixed-size arrays indexed by the Gene constants
//   - Color is always a three-component triple
//   - Population iteration is by ascending ID, never by map order
//   - All JSON tags use snake_case
package cell
