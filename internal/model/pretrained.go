// Package model holds the pretrained model descriptor and the backends that
// run generation for it.
package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrNoConfig     = errors.New("model config.json not found")
	ErrNoTokenizer  = errors.New("model tokenizer not found")
	ErrNotSeq2Seq   = errors.New("model is not an encoder-decoder")
	ErrNotDirectory = errors.New("model path is not a directory")
)

// tokenizerFiles are the tokenizer layouts accepted in a model directory.
var tokenizerFiles = []string{"tokenizer.json", "spiece.model", "tokenizer_config.json"}

// Pretrained describes a sequence-to-sequence model stored on local disk.
// It is read once at startup and never changes afterwards.
type Pretrained struct {
	Dir                 string
	Name                string
	ModelType           string
	Architectures       []string
	VocabSize           int
	DecoderStartTokenID int
	TokenizerFile       string
}

type configFile struct {
	ModelType           string   `json:"model_type"`
	Architectures       []string `json:"architectures"`
	IsEncoderDecoder    *bool    `json:"is_encoder_decoder"`
	VocabSize           int      `json:"vocab_size"`
	DecoderStartTokenID int      `json:"decoder_start_token_id"`
	NameOrPath          string   `json:"_name_or_path"`
}

// Load reads the model directory dir. Only local files are consulted.
func Load(dir string) (*Pretrained, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open model dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoConfig, dir)
		}
		return nil, fmt.Errorf("read model config: %w", err)
	}

	var cfg configFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode model config: %w", err)
	}

	if !isEncoderDecoder(cfg) {
		return nil, fmt.Errorf("%w: model_type %q", ErrNotSeq2Seq, cfg.ModelType)
	}

	tokenizer := ""
	for _, name := range tokenizerFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			tokenizer = name
			break
		}
	}
	if tokenizer == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoTokenizer, dir)
	}

	name := cfg.NameOrPath
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}

	return &Pretrained{
		Dir:                 dir,
		Name:                name,
		ModelType:           cfg.ModelType,
		Architectures:       cfg.Architectures,
		VocabSize:           cfg.VocabSize,
		DecoderStartTokenID: cfg.DecoderStartTokenID,
		TokenizerFile:       tokenizer,
	}, nil
}

// isEncoderDecoder trusts the explicit flag when present and otherwise looks
// for a conditional-generation architecture (T5ForConditionalGeneration,
// BartForConditionalGeneration).
func isEncoderDecoder(cfg configFile) bool {
	if cfg.IsEncoderDecoder != nil {
		return *cfg.IsEncoderDecoder
	}
	for _, arch := range cfg.Architectures {
		if strings.HasSuffix(arch, "ForConditionalGeneration") {
			return true
		}
	}
	switch cfg.ModelType {
	case "t5", "mt5", "bart", "mbart", "pegasus", "marian":
		return true
	}
	return false
}
