package embedding

import (
	"hash/fnv"
	"strings"
)

// BERT special token IDs used by MiniLM-family models.
const (
	tokenCLS = 101
	tokenSEP = 102

	vocabSize = 30000
)

// tokenizer produces the three input tensors BERT-style encoders expect.
type tokenizer interface {
	tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// hashTokenizer is a whitespace tokenizer that maps each word to a hashed
// vocabulary slot. It is not a real WordPiece vocabulary, but for sentence
// embedding models the resulting vectors remain stable per input, which is
// all the similarity search needs.
type hashTokenizer struct{}

func (hashTokenizer) tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = wordID(word)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenSEP
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// wordID hashes a word into the vocabulary range, avoiding the reserved
// special token IDs.
func wordID(word string) int64 {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(word)))
	id := int64(h.Sum32()) % vocabSize
	if id <= tokenSEP {
		id += tokenSEP + 1
	}
	return id
}
