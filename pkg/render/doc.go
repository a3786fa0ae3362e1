// Package render holds the output renderers for dependency trees. The only
// graphical one is in the [dot] subpackage; text and JSON output live with
// the CLI.
package render
