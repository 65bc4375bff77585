// Package urlfeature turns raw URLs into the fixed 15-column lexical
// feature vector used by the phishing classifier.
//
// Extraction is total: every string, including empty, IP-literal and
// malformed URLs, yields all 15 columns. Components that cannot be parsed
// fall back to 0 and are reported at debug level.
//
// The package also carries the keyword and TLD indicators used to score
// URLs when no trained model is available.
package urlfeature
