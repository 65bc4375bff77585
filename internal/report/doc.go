// Package report renders defensys results for people and tools.
//
// Three formats are supported: plain text for terminals, JSON for tool
// integration and Markdown (with a mermaid pie chart of risk levels) for
// sharing. Each writer renders URL verdicts, network flow detections and
// trained model summaries.
package report
