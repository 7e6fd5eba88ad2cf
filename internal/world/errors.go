package world

import "errors"

var (
	ErrUnknownKind             = errors.New("unknown entity kind")
	ErrInvalidSubtype          = errors.New("subtype not declared for kind")
	ErrInvalidStatus           = errors.New("status not declared for kind")
	ErrInvalidCulture          = errors.New("culture not declared")
	ErrInvalidField            = errors.New("invalid field change")
	ErrKindNotPermitted        = errors.New("endpoint kind not permitted")
	ErrSelfRelationship        = errors.New("relationship endpoints must differ")
	ErrUnresolvedRef           = errors.New("unresolved placeholder reference")
	ErrLimitExceeded           = errors.New("relationship limit exceeded")
	ErrUnknownEntity           = errors.New("unknown entity")
	ErrUnknownRelationshipKind = errors.New("unknown relationship kind")
	ErrUnknownRelationship     = errors.New("relationship not active")
)
