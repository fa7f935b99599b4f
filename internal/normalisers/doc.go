// Package normalisers extracts plain text from uploaded reference documents.
// Each sub-package handles one family of MIME types; Registry picks the
// normaliser for a file and detects its type when none is declared.
package normalisers
