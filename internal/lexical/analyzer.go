package lexical

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const analyzerName = "coderag_code"

// codeTokenizer implements analysis.Tokenizer over Tokenize, so every
// bleve field that uses the "coderag_code" analyzer splits identifiers
// the same way the query-side tokenizer does.
type codeTokenizer struct{}

func (codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	terms := Tokenize(string(input))
	stream := make(analysis.TokenStream, 0, len(terms))
	offset := 0
	for i, term := range terms {
		start := offset
		end := start + len(term)
		offset = end
		stream = append(stream, &analysis.Token{
			Term:     []byte(term),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}

func tokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return codeTokenizer{}, nil
}

func analyzerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Analyzer, error) {
	tokenizer, err := cache.TokenizerNamed(analyzerName)
	if err != nil {
		return nil, err
	}
	return &analysis.DefaultAnalyzer{Tokenizer: tokenizer}, nil
}

func init() {
	registry.RegisterTokenizer(analyzerName, tokenizerConstructor)
	registry.RegisterAnalyzer(analyzerName, analyzerConstructor)
}
