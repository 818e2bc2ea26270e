package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure by the stage that produced it.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindExtraction
	KindSplit
	KindEmbedding
	KindIndex
	KindGeneration
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IOError"
	case KindExtraction:
		return "ExtractionError"
	case KindSplit:
		return "SplitError"
	case KindEmbedding:
		return "EmbeddingError"
	case KindIndex:
		return "IndexError"
	case KindGeneration:
		return "GenerationError"
	case KindValidation:
		return "ValidationError"
	default:
		return "UnknownError"
	}
}

// Kind sentinels for errors.Is.
var (
	ErrIO         = &Error{Kind: KindIO}
	ErrExtraction = &Error{Kind: KindExtraction}
	ErrSplit      = &Error{Kind: KindSplit}
	ErrEmbedding  = &Error{Kind: KindEmbedding}
	ErrIndex      = &Error{Kind: KindIndex}
	ErrGeneration = &Error{Kind: KindGeneration}
	ErrValidation = &Error{Kind: KindValidation}
)

var (
	// ErrNoFileSelected is returned when an upload is submitted without a file.
	ErrNoFileSelected = errors.New("please select the file")

	// ErrEmptyInput indicates there is no text to work with.
	ErrEmptyInput = errors.New("empty input")

	// ErrCollectionNotFound indicates the vector collection has not been built.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates vectors of different sizes met in one collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Error is a failure tagged with the kind of stage that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E builds an *Error. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the Err* kind sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
