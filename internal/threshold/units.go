package threshold

// ByteUnit is an absolute size unit. Percentages are deliberately not
// representable here.
type ByteUnit int

const (
	KB ByteUnit = iota + 1
	MB
	GB
	TB
)

// BytesPerUnit returns the power-of-1024 multiplier for u
func BytesPerUnit(u ByteUnit) uint64 {
	n := uint64(1)
	for i := ByteUnit(0); i < u; i++ {
		n *= 1024
	}
	return n
}

// String returns the unit token
func (u ByteUnit) String() string {
	switch u {
	case KB:
		return "KB"
	case MB:
		return "MB"
	case GB:
		return "GB"
	case TB:
		return "TB"
	default:
		return "?"
	}
}

// ToMB converts a byte count to mebibytes
func ToMB(bytes float64) float64 {
	return bytes / float64(BytesPerUnit(MB))
}
