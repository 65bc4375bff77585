// Package main provides the entry point for the defensys CLI.
//
// defensys scores network flows for attacks and URLs for phishing with
// random forest models, and enriches URL verdicts with PhishTank
// reputation data.
//
// Usage:
//
//	defensys check <url>...
//	defensys train network --data flows.csv --labels label
//	defensys predict network capture.pcap
//
// See --help for all available options.
package main

func main() {
	Execute()
}
