// Package theme resolves panel stylesheets. Bundled themes are embedded in the
// binary; a file of the same name in the user's themes directory overrides one.
package theme
