package dataflow

import "strconv"

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
