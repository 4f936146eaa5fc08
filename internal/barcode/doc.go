// Package barcode decodes the identity symbol printed on a bubble sheet.
//
// Decoding is delegated to a Backend; the default backend wraps the pure-Go
// gozxing readers for DataMatrix and QR symbols. A Decoder crops the barcode
// area of a page, pads it with a quiet zone and retries on an upscaled copy
// before giving up. A symbol that cannot be read is not an error: Decode
// returns an empty identity.
package barcode
