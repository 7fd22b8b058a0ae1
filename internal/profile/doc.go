// Package profile compiles CUE vendor profiles into punch.VendorProfile
// values.
//
// A profile file declares how one terminal vendor encodes punches:
//
//	profile: zkteco: {
//		timezone: "GMT"
//		in:  [0, 3, 4]
//		out: [1, 2, 5]
//		method: {"1": "Finger", "15": "Face"}
//	}
//
// CompileProfile handles a single CUE value; LoadDir loads every .cue file
// in a directory and returns all profiles keyed by name. Compilation errors
// carry CUE source positions so a bad profile points at its own file.
package profile
