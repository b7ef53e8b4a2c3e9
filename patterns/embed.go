// Package patterns provides the embedded default PII recognizer
// definitions. The YAML uses a Presidio-compatible recognizer format;
// recognizer order in the file is the detection priority order.
package patterns

import _ "embed"

//go:embed pii_defaults.yaml
var piiDefaultsYAML []byte

// PIIDefaultsYAML returns the embedded default PII recognizer definitions.
func PIIDefaultsYAML() []byte { return piiDefaultsYAML }
