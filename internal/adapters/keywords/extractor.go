package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenLength = 3

// Слова без сигнальной ценности: не попадают в набор ключевых слов.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "his": {}, "has": {}, "how": {}, "man": {},
	"new": {}, "now": {}, "old": {}, "see": {}, "two": {}, "way": {},
	"who": {}, "did": {}, "get": {}, "him": {}, "its": {}, "let": {},
	"she": {}, "too": {}, "use": {}, "that": {}, "with": {}, "have": {},
	"this": {}, "will": {}, "your": {}, "from": {}, "they": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "their": {}, "about": {},
	"video": {}, "videos": {}, "watch": {},
}

// Extractor реализует domain.KeywordExtractor эвристикой: нижний регистр,
// разбиение по небуквенным символам, отбрасывание стоп-слов и коротких
// токенов, дедупликация.
type Extractor struct{}

// NewExtractor создаёт экстрактор ключевых слов.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract возвращает набор нормализованных ключевых слов в порядке первого
// вхождения. Пустой или вырожденный ввод даёт пустой набор.
func (e *Extractor) Extract(raw string) []string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return nil
	}
	tokens := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < minTokenLength {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
