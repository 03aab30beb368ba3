// Package exportpdf paginates composite section bitmaps into PDF documents.
//
// Two layouts are supported: one fixed-size landscape page per section, or a
// single continuous page whose height follows the composite aspect ratio.
// Bitmaps are embedded as lossless PNG via gopdf.
package exportpdf
