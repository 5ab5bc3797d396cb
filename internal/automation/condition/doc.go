// Package condition implements the built-in condition kinds: keyword,
// expression and time_window. Register installs them into a TypeRegistry.
package condition
