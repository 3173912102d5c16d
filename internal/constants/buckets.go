package constants

// Bucket names used when no configuration overrides them
const (
	// DefaultSourceBucket holds the raw product images written by the
	// upstream crawler, keyed {item_code}_{n}.jpeg
	DefaultSourceBucket = "phitemspics"

	// DefaultBundleBucket receives the finished zips, keyed {item_code}.zip
	DefaultBundleBucket = "phbundledimages"
)
