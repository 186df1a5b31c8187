package sdk

// SupportedSchemaMajor is the major tool schema version this SDK speaks.
// Compatible returns an error when the server reports a different major.
const SupportedSchemaMajor = "1"
