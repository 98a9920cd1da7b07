package chunker

import "github.com/rivo/uniseg"

// Item is one text sent to the model, keyed by a request-local ID.
type Item struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Chunk represents a chunk of items to be translated along with surrounding context.
type Chunk struct {
	Index   int
	Target  []Item
	Context BeforeAfterContext
}

// BeforeAfterContext holds context items.
type BeforeAfterContext struct {
	Before []Item
	After  []Item
}

// SplitIntoChunks splits items into chunks of a given size,
// providing specified amount of context before and after each chunk.
func SplitIntoChunks(items []Item, chunkSize, contextSize int) []Chunk {
	return SplitIntoChunksLimit(items, chunkSize, contextSize, 0)
}

// SplitIntoChunksLimit is SplitIntoChunks with an extra budget of grapheme
// clusters per chunk. A chunk always holds at least one item; maxChars <= 0
// disables the budget.
func SplitIntoChunksLimit(items []Item, chunkSize, contextSize, maxChars int) []Chunk {
	var chunks []Chunk
	n := len(items)
	if chunkSize <= 0 {
		chunkSize = 1
	}

	for i := 0; i < n; {
		end := i
		chars := 0
		for end < n && end-i < chunkSize {
			c := uniseg.GraphemeClusterCount(items[end].Text)
			if maxChars > 0 && end > i && chars+c > maxChars {
				break
			}
			chars += c
			end++
		}

		target := items[i:end]

		// Context Before
		beforeStart := i - contextSize
		if beforeStart < 0 {
			beforeStart = 0
		}
		before := items[beforeStart:i]

		// Context After
		afterEnd := end + contextSize
		if afterEnd > n {
			afterEnd = n
		}
		after := items[end:afterEnd]

		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Target: target,
			Context: BeforeAfterContext{
				Before: before,
				After:  after,
			},
		})
		i = end
	}

	return chunks
}
