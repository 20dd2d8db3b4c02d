package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMock(64)
	a, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("got %d dimensions, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestMockEmbedderDistinctTexts(t *testing.T) {
	e := NewMock(64)
	a, _ := e.Embed(context.Background(), "first text")
	b, _ := e.Embed(context.Background(), "something else")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMock(128)
	vec, _ := e.Embed(context.Background(), "normalize me")
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("squared norm = %v, want 1", sum)
	}
}

func TestMockEmbedderBatchMatchesSingle(t *testing.T) {
	e := NewMock(32)
	texts := []string{"one", "two", "three"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := e.Embed(context.Background(), text)
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch vector %d differs from single embed", i)
			}
		}
	}
}

func TestNormalizeL2ZeroVector(t *testing.T) {
	vec := []float32{0, 0, 0}
	NormalizeL2(vec)
	for _, v := range vec {
		if v != 0 {
			t.Fatal("zero vector should stay zero")
		}
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []float32{1})
	c.put("b", []float32{2})
	c.put("c", []float32{3})
	if _, ok := c.get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := c.get("b"); !ok {
		t.Error("entry b should remain")
	}
	if _, ok := c.get("c"); !ok {
		t.Error("entry c should remain")
	}
	if c.len() != 2 {
		t.Errorf("cache has %d entries, want 2", c.len())
	}
}

func TestLRUCacheRecentUseSurvives(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []float32{1})
	c.put("b", []float32{2})
	c.get("a") // refresh a so b becomes the eviction candidate
	c.put("c", []float32{3})
	if _, ok := c.get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
}

func TestHashTokenizerShape(t *testing.T) {
	tok := hashTokenizer{}
	ids, mask, types := tok.tokenize("the quick brown fox", 16)
	if len(ids) != 16 || len(mask) != 16 || len(types) != 16 {
		t.Fatalf("tensor lengths = %d/%d/%d, want 16", len(ids), len(mask), len(types))
	}
	if ids[0] != tokenCLS {
		t.Errorf("first token = %d, want CLS", ids[0])
	}
	if ids[5] != tokenSEP {
		t.Errorf("token after words = %d, want SEP", ids[5])
	}
	for i := 0; i < 6; i++ {
		if mask[i] != 1 {
			t.Errorf("attention mask[%d] = %d, want 1", i, mask[i])
		}
	}
	if mask[6] != 0 {
		t.Error("padding should not be attended")
	}
}

func TestHashTokenizerTruncates(t *testing.T) {
	tok := hashTokenizer{}
	long := ""
	for i := 0; i < 100; i++ {
		long += "word "
	}
	ids, _, _ := tok.tokenize(long, 8)
	if len(ids) != 8 {
		t.Fatalf("got %d tokens, want 8", len(ids))
	}
}

func TestWordIDAvoidsSpecialTokens(t *testing.T) {
	for _, w := range []string{"a", "the", "of", "hello", "世界"} {
		id := wordID(w)
		if id <= tokenSEP || id >= vocabSize+tokenSEP+1 {
			t.Errorf("wordID(%q) = %d, outside usable range", w, id)
		}
	}
}
