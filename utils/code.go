package utils

import (
	"fmt"
	"time"
)

func GenOrderCode(seq int64, t time.Time) string {
	return fmt.Sprintf("PO-%d-%06d", t.Year(), seq)
}

func GenSalesCode(seq int64, t time.Time) string {
	return fmt.Sprintf("SO-%d-%06d", t.Year(), seq)
}
