package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/radiology-ai/internal/domain/topic"
)

// LoadLexicon reads the topic gate lexicon. Any problem is a gate configuration error.
func LoadLexicon(path string) (topic.Lexicon, error) {
	var lex topic.Lexicon
	data, err := os.ReadFile(path)
	if err != nil {
		return lex, fmt.Errorf("%w: read lexicon %s: %v", topic.ErrGateConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return lex, fmt.Errorf("%w: parse lexicon %s: %v", topic.ErrGateConfiguration, path, err)
	}
	if err := lex.Validate(); err != nil {
		return lex, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}
