package bot

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkReply_ShortMessageUntouched(t *testing.T) {
	chunks := chunkReply("hello there")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello there", chunks[0])
	assert.NotContains(t, chunks[0], "[Part")
}

func TestChunkReply_ExactLimitUntouched(t *testing.T) {
	text := strings.Repeat("a", maxMessageLen)
	chunks := chunkReply(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkReply_LongMessageLabeled(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "line %d of a long reply that keeps going\n", i)
	}
	text := b.String()

	chunks := chunkReply(text)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), maxMessageLen, "chunk %d exceeds the message limit", i)
		assert.True(t, strings.HasPrefix(chunk, fmt.Sprintf("[Part %d/%d]\n", i+1, len(chunks))))
	}
}

func TestChunkReply_PrefersLineBreaks(t *testing.T) {
	line := strings.Repeat("w", 600)
	text := strings.Join([]string{line, line, line, line, line}, "\n")

	chunks := chunkReply(text)
	require.Greater(t, len(chunks), 1)

	// Splitting at line breaks means no line is torn in half.
	for _, chunk := range chunks {
		body := chunk[strings.Index(chunk, "\n")+1:]
		for _, l := range strings.Split(body, "\n") {
			assert.Len(t, l, 600)
		}
	}
}

func TestChunkReply_NoContentLost(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&b, "sentence number %d.\n", i)
	}
	text := b.String()

	var reassembled []string
	for _, chunk := range chunkReply(text) {
		reassembled = append(reassembled, chunk[strings.Index(chunk, "\n")+1:])
	}

	for i := 0; i < 150; i++ {
		assert.Contains(t, strings.Join(reassembled, "\n"), fmt.Sprintf("sentence number %d.", i))
	}
}

func TestSplitMessage_MultibyteHardCut(t *testing.T) {
	// The leading "a" misaligns every following 2-byte rune so one
	// straddles the byte limit.
	text := "a" + strings.Repeat("é", 1500)
	chunks := splitMessage(text, maxMessageLen)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d contains a torn rune", i)
		assert.LessOrEqual(t, len(chunk), maxMessageLen)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunkReply_MultibyteStaysValid(t *testing.T) {
	text := "a" + strings.Repeat("🌳", 900)
	chunks := chunkReply(text)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d contains a torn rune", i)
		assert.LessOrEqual(t, len(chunk), maxMessageLen)
	}
}

func TestSplitMessage_UnbreakableTextHardCut(t *testing.T) {
	text := strings.Repeat("x", 4500)
	chunks := splitMessage(text, maxMessageLen)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], maxMessageLen)
	assert.Len(t, chunks[1], maxMessageLen)
	assert.Len(t, chunks[2], 500)
	assert.Equal(t, text, strings.Join(chunks, ""))
}
