// Package action implements the built-in action kinds: shell, git, log,
// mqtt_publish and script.
//
// String fields that accept templates are expanded with automation.Expand
// against the execution context before use, so "${body.ref}" in a shell
// command becomes the webhook's ref.
package action
