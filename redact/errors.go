package redact

import "errors"

// ErrInvalidInput indicates the input is not valid UTF-8. The engine
// refuses rather than guessing an encoding: a misdecoded byte could
// hide an identifier.
var ErrInvalidInput = errors.New("input is not valid UTF-8")

// ErrInputTooLarge indicates the input exceeds the policy's
// maxDocumentBytes bound.
var ErrInputTooLarge = errors.New("input exceeds policy document size limit")

// ErrSpanBudgetExceeded indicates detection produced more raw spans
// than the policy's maxSpansPerDoc bound allows.
var ErrSpanBudgetExceeded = errors.New("span budget exceeded")

// ErrCancelled indicates the call was cancelled before the document
// could be rewritten. Replacement is all-or-nothing: a partially
// rewritten document is never returned.
var ErrCancelled = errors.New("cancelled before replacement")
