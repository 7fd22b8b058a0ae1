// Package punch provides the canonical domain types for punchsync.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import punch; punch imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - All instants that cross a package boundary are UTC. Device-local naive
//     timestamps exist only inside RawPunch and are converted exactly once,
//     at ingest, via ToUTC with the profile timezone.
//   - Name matching never uses raw strings. NameKey (NFC + case fold) is the
//     only equality key; CleanFullName is the only display form.
//   - The punch-code → side partition is vendor configuration (VendorProfile),
//     never a hardcoded constant outside DefaultProfile.
package punch
