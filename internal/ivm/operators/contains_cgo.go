//go:build cgo

package operators

import (
	"strings"
	"sync"

	"github.com/yanyiwu/gojieba"
)

// jiebaOnce guards construction of the shared tokenizer; gojieba loads a
// dictionary from disk on first use, so one process-wide instance is kept
// rather than one per predicate (mirrors the teacher's analyzer singleton
// in pkg/fulltext/analyzer).
var (
	jiebaOnce sync.Once
	jieba     *gojieba.Jieba
)

func tokenizer() *gojieba.Jieba {
	jiebaOnce.Do(func() { jieba = gojieba.NewJieba() })
	return jieba
}

// ContainsToken implements change.OpContainsIn: true when token segments
// into words that all appear among value's own segmented words. Non-string
// operands never match.
func ContainsToken(value, token interface{}) bool {
	s, sok := value.(string)
	t, tok := token.(string)
	if !sok || !tok {
		return false
	}
	if t == "" {
		return true
	}
	words := tokenizer().Cut(s, true)
	needles := tokenizer().Cut(t, true)
	have := make(map[string]bool, len(words))
	for _, w := range words {
		have[strings.ToLower(strings.TrimSpace(w))] = true
	}
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if !have[n] {
			return false
		}
	}
	return true
}
