package stamp

// MemoryReader loads raw primitive bit patterns, as a constant-reflection
// provider would. ok is false when the location cannot be read at compile
// time.
type MemoryReader interface {
	ReadPrimitive(base any, offset int64, bits int) (raw uint64, ok bool)
}
