package table

// Chunk 按固定大小切分，最后一块可能不足 size；空输入返回空结果
// size <= 0 时使用 DefaultPageSize
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultPageSize
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}
