package xid

import (
	"fmt"
	"time"
)

const saleIDLayout = "V-20060102-150405"

// ProductCode renders the catalog code derived from a product id.
func ProductCode(id int64) string {
	return fmt.Sprintf("P%04d", id)
}

// SaleID renders the sale number for a confirmation instant, to the second,
// in the location carried by t.
func SaleID(t time.Time) string {
	return t.Format(saleIDLayout)
}

// Unique returns base unless taken reports it in use, in which case the first
// free "-NN" suffix starting at 02 is appended. Two confirmations inside the
// same second therefore get V-...-153000 and V-...-153000-02.
func Unique(base string, taken func(string) bool) string {
	if taken == nil || !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%02d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
