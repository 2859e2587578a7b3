package cipher

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"cipherga/internal/genotype"
)

const Alphabet = "abcdefghijklmnopqrstuvwxyz"

var ErrNoKnownSolution = errors.New("cipher has no known solution")

// Cipher is a homophonic substitution ciphertext: a sequence of symbols,
// each of which stands for one plaintext letter.
type Cipher struct {
	Name             string            `yaml:"name" json:"name" validate:"required"`
	Rows             int               `yaml:"rows,omitempty" json:"rows,omitempty" validate:"gte=0"`
	Columns          int               `yaml:"columns,omitempty" json:"columns,omitempty" validate:"gte=0"`
	Ciphertext       []string          `yaml:"ciphertext" json:"ciphertext" validate:"min=1,dive,required"`
	KnownSolutionKey map[string]string `yaml:"knownSolutionKey,omitempty" json:"knownSolutionKey,omitempty"`

	symbolsOnce sync.Once
	symbols     []string
}

var cipherValidate = validator.New()

// New builds a cipher from ciphertext split by SplitSymbols.
func New(name, ciphertext string, knownSolution map[string]string) (*Cipher, error) {
	c := &Cipher{
		Name:             name,
		Ciphertext:       SplitSymbols(ciphertext),
		KnownSolutionKey: knownSolution,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a cipher definition. JSON files are accepted as well as
// YAML.
func LoadFile(path string) (*Cipher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cipher %s: %w", path, err)
	}
	var c Cipher
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cipher %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("cipher %s: %w", path, err)
	}
	return &c, nil
}

// SplitSymbols splits inline ciphertext. Whitespace separates symbols, which
// may then be several characters long ("12 7 12"); text without whitespace is
// one symbol per character.
func SplitSymbols(ciphertext string) []string {
	ciphertext = strings.TrimSpace(ciphertext)
	if ciphertext == "" {
		return nil
	}
	if strings.IndexFunc(ciphertext, unicode.IsSpace) >= 0 {
		return strings.Fields(ciphertext)
	}
	symbols := make([]string, 0, len(ciphertext))
	for _, r := range ciphertext {
		symbols = append(symbols, string(r))
	}
	return symbols
}

func (c *Cipher) Validate() error {
	if err := cipherValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid cipher: %w", err)
	}
	if c.Rows > 0 && c.Columns > 0 && c.Rows*c.Columns != len(c.Ciphertext) {
		return fmt.Errorf("invalid cipher: %dx%d grid does not hold %d symbols", c.Rows, c.Columns, len(c.Ciphertext))
	}
	present := make(map[string]struct{}, len(c.Ciphertext))
	for _, symbol := range c.Ciphertext {
		present[symbol] = struct{}{}
	}
	for symbol, letter := range c.KnownSolutionKey {
		if len(letter) != 1 || !strings.Contains(Alphabet, letter) {
			return fmt.Errorf("invalid cipher: known solution maps %q to %q", symbol, letter)
		}
		if _, ok := present[symbol]; !ok {
			return fmt.Errorf("invalid cipher: known solution symbol %q not in ciphertext", symbol)
		}
	}
	return nil
}

func (c *Cipher) Length() int {
	return len(c.Ciphertext)
}

// Symbols returns the distinct symbols in order of first appearance.
func (c *Cipher) Symbols() []string {
	c.symbolsOnce.Do(func() {
		seen := make(map[string]struct{})
		for _, symbol := range c.Ciphertext {
			if _, ok := seen[symbol]; ok {
				continue
			}
			seen[symbol] = struct{}{}
			c.symbols = append(c.symbols, symbol)
		}
	})
	return append([]string(nil), c.symbols...)
}

func (c *Cipher) HasKnownSolution() bool {
	return len(c.KnownSolutionKey) > 0
}

// KnownLetter reports the plaintext letter the known solution assigns to
// symbol.
func (c *Cipher) KnownLetter(symbol string) (string, bool) {
	letter, ok := c.KnownSolutionKey[symbol]
	return letter, ok
}

// Decrypt substitutes every ciphertext symbol with the letter of its gene in
// key.
func (c *Cipher) Decrypt(key *genotype.Chromosome) (string, error) {
	var sb strings.Builder
	sb.Grow(len(c.Ciphertext))
	for i, symbol := range c.Ciphertext {
		gene, ok := key.Gene(symbol)
		if !ok || gene == nil {
			return "", fmt.Errorf("decrypt position %d: no gene for symbol %q", i, symbol)
		}
		sb.WriteString(gene.String())
	}
	return sb.String(), nil
}

// Grid lays plaintext out in the cipher's rows. Ciphers without a grid are
// returned as a single line.
func (c *Cipher) Grid(plaintext string) []string {
	if c.Columns <= 0 || len(plaintext) <= c.Columns {
		return []string{plaintext}
	}
	var rows []string
	for start := 0; start < len(plaintext); start += c.Columns {
		end := start + c.Columns
		if end > len(plaintext) {
			end = len(plaintext)
		}
		rows = append(rows, plaintext[start:end])
	}
	return rows
}
