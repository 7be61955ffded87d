package llm

import "errors"

var (
	// ErrEmptyContent is returned when the model responds with no content
	// at all.
	ErrEmptyContent = errors.New("llm: model returned empty content")

	// ErrSchemaAsContent is returned when the model echoes the schema
	// description back as if it were the answer.
	ErrSchemaAsContent = errors.New("llm: model returned the JSON schema instead of content")

	// ErrLikelyTruncated is returned when the response looks like it was
	// cut off mid-object; it wraps the underlying JSON parse error.
	ErrLikelyTruncated = errors.New("llm: response is likely truncated")

	// ErrSchemaMismatch is returned when the parsed content does not
	// unmarshal into the caller's target type.
	ErrSchemaMismatch = errors.New("llm: response does not match requested schema")
)
