package reputation

import "errors"

var (
	// ErrInvalidProxyAddress is returned when a SOCKS5 proxy address is not
	// in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrCacheDisabled is returned by ClearCache on a client without a cache.
	ErrCacheDisabled = errors.New("reputation cache is not configured")
)
