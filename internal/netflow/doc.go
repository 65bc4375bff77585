// Package netflow turns network-flow summaries into the fixed-width feature
// vectors consumed by the network intrusion classifier.
//
// Input arrives as one of the tagged Input variants (in-memory records, a
// single record, or a CSV/JSON/PCAP file path) and is decoded once into a
// model.FlowBatch. The Extractor then derives every column of FeatureNames
// for every record. Missing source fields never produce missing columns:
// each derivation has a deterministic fallback.
//
// Several columns are estimates rather than measurements. Inter-arrival
// times are fixed constants and packet-size statistics are scaled from the
// average packet size, because flow summaries carry no per-packet timing or
// sizes. The constants live in Heuristics and can be overridden.
//
// Two columns depend on more than the row itself:
//   - port and packet-size entropies are computed over the whole batch and
//     only when the batch has more rows than Heuristics.EntropyMinRows
//   - ip_communication_count reads an IPPairCounter owned by the extractor,
//     so values depend on every batch the extractor has seen
//
// Reset the counter (or use a fresh extractor) for reproducible output.
package netflow
