// Package transcript splits recognized announcement text into lookup tokens.
package transcript
