package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
)

const (
	NameWeight     = 5.0
	ContentWeight  = 1.0
	MissingPenalty = 3.0

	// FuzzyThreshold минимальная похожесть слов (0..1), при которой они считаются совпавшими
	FuzzyThreshold = 0.8
)

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Normalize приводит текст к нижнему регистру, заменяет пунктуацию пробелами и схлопывает пробелы
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, " ")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Similarity 1 - levenshtein(a, b) / max(len(a), len(b)) по рунам
func Similarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(maxLen)
}

func similar(a, b string) bool {
	return Similarity(a, b) >= FuzzyThreshold
}

// Query нормализованный поисковый запрос
type Query struct {
	Phrase string
	Words  []string
}

// ParseQuery нормализует запрос и разбивает его на слова
func ParseQuery(raw string) Query {
	phrase := Normalize(raw)
	return Query{Phrase: phrase, Words: strings.Fields(phrase)}
}

// Empty сообщает, что в запросе нет ни одного слова
func (q Query) Empty() bool {
	return len(q.Words) == 0
}

// Score оценивает документ по запросу. Название весит больше содержимого,
// каждое ненайденное слово запроса штрафуется.
func Score(doc *document.Document, q Query) float64 {
	found := make(map[string]struct{}, len(q.Words))
	score := nameScore(Normalize(doc.Name), q, found) + contentScore(doc.Payload, q, found)

	missing := len(q.Words) - len(found)
	return score - float64(missing)*MissingPenalty
}

func nameScore(name string, q Query, found map[string]struct{}) float64 {
	if name == q.Phrase {
		return NameWeight * 5
	}
	if similar(name, q.Phrase) {
		return NameWeight * 3
	}

	nameWords := strings.Split(name, " ")
	score := 0.0
	for _, word := range q.Words {
		for _, nameWord := range nameWords {
			if similar(nameWord, word) {
				score += NameWeight
				found[word] = struct{}{}
				break
			}
		}
	}
	return score
}

func contentScore(p document.Payload, q Query, found map[string]struct{}) float64 {
	texts, err := p.TextFragments()
	if err != nil {
		// Нечитаемое содержимое просто не дает очков
		return 0
	}

	normalized := make([]string, len(texts))
	for i, text := range texts {
		normalized[i] = Normalize(text)
	}

	score := 0.0
	for _, text := range normalized {
		if strings.Contains(text, q.Phrase) {
			score += ContentWeight * 3
			for _, word := range q.Words {
				found[word] = struct{}{}
			}
		}
	}

	for _, text := range normalized {
		textWords := strings.Split(text, " ")
		for _, word := range q.Words {
			if _, ok := found[word]; ok {
				continue
			}

			matches := 0
			for _, textWord := range textWords {
				if similar(textWord, word) {
					matches++
				}
			}
			if matches == 0 {
				continue
			}

			score += ContentWeight
			found[word] = struct{}{}
			if matches > 1 {
				score += ContentWeight * 0.5
			}
		}
	}

	return score
}

// Rank возвращает документы с положительной оценкой, лучшие первыми.
// Пустой запрос возвращает входной список без изменений.
func Rank(docs []*document.Document, raw string) []*document.Document {
	q := ParseQuery(raw)
	if q.Empty() {
		return docs
	}

	type scored struct {
		doc   *document.Document
		score float64
	}

	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		if s := Score(doc, q); s > 0 {
			results = append(results, scored{doc: doc, score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	out := make([]*document.Document, len(results))
	for i, r := range results {
		out[i] = r.doc
	}
	return out
}
