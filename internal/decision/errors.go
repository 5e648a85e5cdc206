package decision

import "errors"

var (
	ErrInvalidDecision   = errors.New("invalid decision")
	ErrUnsupportedMethod = errors.New("unsupported vote method")
	ErrDecisionNotOpen   = errors.New("decision not open for voting")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrStatementRequired = errors.New("statement required for block")
	ErrInvalidTransition = errors.New("invalid status transition")
)
