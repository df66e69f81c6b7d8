package xbuffer

// Chunk 一段连续的记录字节及其记录边界。
//
// marks 保存每条记录在 buf 中的起始偏移，严格递增且 marks[0] == 0
// （非空时）。记录 i 的范围是 [marks[i], marks[i+1])，末条到块尾。
// 边界信息使消费方可以按整条记录切分，而无需重新扫描换行符。
type Chunk struct {
	buf   []byte
	marks []int
}

func newChunk(capacity int) *Chunk {
	return &Chunk{
		buf:   make([]byte, 0, capacity),
		marks: make([]int, 0, capacity/128+1),
	}
}

// NewChunk 把一条记录包装成独立的单记录块。
//
// 供缓冲之外的旁路写入使用，例如崩溃路径把致命记录直接送进
// 按块工作的写出端。rec 被拷贝，调用方可立即复用底层数组。
func NewChunk(rec []byte) *Chunk {
	c := &Chunk{
		buf:   make([]byte, 0, len(rec)),
		marks: make([]int, 0, 1),
	}
	if len(rec) > 0 {
		c.append(rec)
	}
	return c
}

// Bytes 返回块内全部字节。调用方不得修改。
func (c *Chunk) Bytes() []byte { return c.buf }

// Len 返回块内字节数。
func (c *Chunk) Len() int { return len(c.buf) }

// Records 返回块内记录条数。
func (c *Chunk) Records() int { return len(c.marks) }

// Record 返回第 i 条记录的字节。i 越界时返回 nil。
func (c *Chunk) Record(i int) []byte {
	if i < 0 || i >= len(c.marks) {
		return nil
	}
	end := len(c.buf)
	if i+1 < len(c.marks) {
		end = c.marks[i+1]
	}
	return c.buf[c.marks[i]:end]
}

// reset 清空块内容但保留底层容量。
func (c *Chunk) reset() {
	c.buf = c.buf[:0]
	c.marks = c.marks[:0]
}

// append 追加一条完整记录，返回其起始偏移。
func (c *Chunk) append(rec []byte) int {
	start := len(c.buf)
	c.marks = append(c.marks, start)
	c.buf = append(c.buf, rec...)
	return start
}

// dropOldest 从头部丢弃至少 n 字节的旧记录，丢弃量向上取整到最近的
// 记录边界。n 覆盖全部内容时整块清空。返回实际丢弃的字节数。
func (c *Chunk) dropOldest(n int) int {
	if n <= 0 || len(c.marks) == 0 {
		return 0
	}
	// 在 marks[1:] 中找第一个不小于 n 的边界；找不到则全丢。
	idx := len(c.marks)
	for i := 1; i < len(c.marks); i++ {
		if c.marks[i] >= n {
			idx = i
			break
		}
	}
	if idx == len(c.marks) {
		dropped := len(c.buf)
		c.reset()
		return dropped
	}
	cut := c.marks[idx]
	c.buf = c.buf[:copy(c.buf, c.buf[cut:])]
	k := copy(c.marks, c.marks[idx:])
	c.marks = c.marks[:k]
	for i := range c.marks {
		c.marks[i] -= cut
	}
	return cut
}
