// Package vocab holds the static, load-once dictionaries the detectors
// and arbitration stages consult: given names and surnames with a
// phonetic index for fuzzy hits, the medical-term allow-list that
// shields clinical vocabulary from name detection, facility and device
// manufacturer names, credential and name-prefix tokens, stopwords and
// section headers.
//
// Every lookup is O(1) expected. Keys are case-folded with diacritics
// stripped to their base letters, so "José" and "Jose" hit the same
// entry. A separate character-confusion normalisation maps common OCR
// misreads (0/O, 1/l/I, 5/S, 8/B, rn/m) onto equivalence classes before
// lookup; offsets reported by detectors always refer to the original
// text.
package vocab
