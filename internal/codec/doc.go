// Package codec reads and writes the binary triangulation column of a census
// catalog and its packed cusp permutation column.
//
// # Blob Layout
//
// The first byte is a header:
//
//	bit 7      use_cobs   a change-of-basis block follows the header
//	bit 6      use_string the body is a text triangulation
//	bits 0..5  num_cusps
//
// When use_cobs is set and use_string is not, the next 4*num_cusps bytes hold
// one 2x2 matrix per cusp (signed bytes, row-major). Everything after that is
// the triangulation body, handed unchanged to the manifold constructor.
//
// # Permutation Column
//
// The perm column packs one 4-bit cusp index per cusp, cusp n in bits
// 4n..4n+3. NULL and zero both mean the identity.
package codec
