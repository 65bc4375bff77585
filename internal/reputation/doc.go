// Package reputation looks URLs up in the PhishTank database and fuses the
// answer with a phishing model's probability into a final verdict.
//
// Lookups never fail from the caller's point of view. Transport errors,
// non-200 responses and undecodable bodies are logged and turned into a
// record that is not in the database, carrying the error text. Successful
// lookups are kept in a Cache for one hour by default.
package reputation
