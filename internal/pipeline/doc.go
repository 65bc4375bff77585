// Package pipeline runs URL checks through a sequence of steps.
//
// A Check moves through phishing prediction, reputation enrichment and
// verdict recording. Each stage is a Step that receives the Check and may
// fill in part of it.
//
// BatchProcessor runs one pipeline per URL with bounded concurrency using
// errgroup, keeping results in input order.
package pipeline
