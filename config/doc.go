// Package config resolves the runtime settings of the binding and the
// device selection of multi-device recordings.
//
// The libevemu location is always explicit: FromEnv reads EVEMU_LIBRARY and
// a -lib flag overrides it through WithLibrary. Validate fails with a
// not_configured error instead of searching the filesystem.
package config
