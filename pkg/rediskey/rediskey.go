package rediskey

import "fmt"

// Brand keys (global convention across services)
const (
	BrandPrefix     = "brand"
	BrandCodePrefix = "brand:code"
	BrandSlugPrefix = "brand:slug"
	SequencePrefix  = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildBrandIDKey returns "brand:{brandID}"
func BuildBrandIDKey(brandID string) string {
	return NamespaceKey(BrandPrefix, brandID)
}

// BuildBrandCodeKey returns "brand:code:{brandCode}"
func BuildBrandCodeKey(code string) string {
	return NamespaceKey(BrandCodePrefix, code)
}

// BuildBrandSlugKey returns "brand:slug:{slug}"
func BuildBrandSlugKey(slug string) string {
	return NamespaceKey(BrandSlugPrefix, slug)
}

// BuildSequenceKey returns "seq:{name}", the counter behind global codes.
func BuildSequenceKey(name string) string {
	return NamespaceKey(SequencePrefix, name)
}

// BuildDailySequenceKey returns "seq:{prefix}:{brandID}:{yymmdd}", the daily
// counter behind campaign, coupon and event codes.
func BuildDailySequenceKey(prefix, brandID, day string) string {
	return fmt.Sprintf("%s:%s:%s:%s", SequencePrefix, prefix, brandID, day)
}
