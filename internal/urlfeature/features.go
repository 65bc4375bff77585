package urlfeature

// Column indices of the URL feature vector.
const (
	ColURLLength = iota
	ColDomainLength
	ColPathLength
	ColDomainTokenCount
	ColPathTokenCount
	ColHasIPAddress
	ColHasAtSymbol
	ColHasDoubleSlash
	ColHasDashInDomain
	ColHasMultipleSubdomains
	ColIsHTTPS
	ColDomainToPathRatio
	ColDigitCount
	ColDigitToLetterRatio
	ColSpecialCharCount

	// NumFeatures is the width of the URL feature vector.
	NumFeatures
)

// FeatureNames lists the column names in vector order.
var FeatureNames = [NumFeatures]string{
	ColURLLength:             "url_length",
	ColDomainLength:          "domain_length",
	ColPathLength:            "path_length",
	ColDomainTokenCount:      "domain_token_count",
	ColPathTokenCount:        "path_token_count",
	ColHasIPAddress:          "has_ip_address",
	ColHasAtSymbol:           "has_at_symbol",
	ColHasDoubleSlash:        "has_double_slash",
	ColHasDashInDomain:       "has_dash_in_domain",
	ColHasMultipleSubdomains: "has_multiple_subdomains",
	ColIsHTTPS:               "is_https",
	ColDomainToPathRatio:     "domain_to_path_ratio",
	ColDigitCount:            "digit_count",
	ColDigitToLetterRatio:    "digit_to_letter_ratio",
	ColSpecialCharCount:      "special_char_count",
}

// Names returns a copy of FeatureNames as a slice.
func Names() []string {
	out := make([]string, NumFeatures)
	copy(out, FeatureNames[:])
	return out
}
