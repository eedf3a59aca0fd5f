// Package caption rasterizes the English caption shown beside each sign.
//
// Captions use the Go Mono face on a fixed black panel. Stroke thickness is
// emulated by drawing the string at each offset of a thickness x thickness
// square. Text that does not fit is shrunk proportionally down to a minimum
// scale and clipped past that.
package caption
