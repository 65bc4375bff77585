// Package stats provides the small numeric helpers shared by the feature
// extractors: Shannon entropy over categorical samples and zero-guarded
// ratios.
package stats
